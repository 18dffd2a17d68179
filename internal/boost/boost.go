// Package boost implements a gradient-boosted regression-tree learner with
// MAE-based early stopping, plus the isotonic calibrator used to correct its
// raw output. Both are deterministic under a fixed seed.
package boost

import (
	"fmt"
	"math"
	"math/rand"
)

// Params are the boosting hyperparameters. They mirror the fixed production
// configuration: 300 rounds, learning rate 0.05, depth 4, 0.8 row/column
// subsampling, squared-error objective, early stopping on eval MAE with a
// patience of 20 rounds.
type Params struct {
	Rounds             int
	LearningRate       float64
	MaxDepth           int
	Subsample          float64
	ColSample          float64
	EarlyStoppingRound int
	Seed               int64
}

// DefaultParams returns the production hyperparameters.
func DefaultParams() Params {
	return Params{
		Rounds:             300,
		LearningRate:       0.05,
		MaxDepth:           4,
		Subsample:          0.8,
		ColSample:          0.8,
		EarlyStoppingRound: 20,
		Seed:               42,
	}
}

// Regressor is a fitted boosted-tree ensemble.
type Regressor struct {
	params Params
	base   float64
	trees  []*node
}

// Fit trains the ensemble on (x, y) with (evalX, evalY) as the early-stopping
// set. The ensemble is truncated to the round with the best eval MAE.
func Fit(x [][]float64, y []float64, evalX [][]float64, evalY []float64, params Params) (*Regressor, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("boost: invalid training set: %d rows, %d targets", len(x), len(y))
	}
	if len(evalX) == 0 || len(evalX) != len(evalY) {
		return nil, fmt.Errorf("boost: invalid eval set: %d rows, %d targets", len(evalX), len(evalY))
	}

	rng := rand.New(rand.NewSource(params.Seed))
	nFeatures := len(x[0])

	r := &Regressor{params: params, base: meanOf(y)}

	pred := make([]float64, len(x))
	evalPred := make([]float64, len(evalX))
	for i := range pred {
		pred[i] = r.base
	}
	for i := range evalPred {
		evalPred[i] = r.base
	}

	grad := make([]float64, len(x))
	bestMAE := math.Inf(1)
	bestRound := -1

	for round := 0; round < params.Rounds; round++ {
		// Squared-error objective: fit each tree to the current residuals.
		for i := range grad {
			grad[i] = y[i] - pred[i]
		}

		rows := sampleRows(rng, len(x), params.Subsample)
		cols := sampleCols(rng, nFeatures, params.ColSample)
		tree := buildTree(x, grad, rows, cols, 0, params.MaxDepth)
		r.trees = append(r.trees, tree)

		for i := range pred {
			pred[i] += params.LearningRate * tree.predict(x[i])
		}
		for i := range evalPred {
			evalPred[i] += params.LearningRate * tree.predict(evalX[i])
		}

		mae := 0.0
		for i := range evalPred {
			mae += math.Abs(evalPred[i] - evalY[i])
		}
		mae /= float64(len(evalPred))

		if mae < bestMAE {
			bestMAE = mae
			bestRound = round
		} else if params.EarlyStoppingRound > 0 && round-bestRound >= params.EarlyStoppingRound {
			break
		}
	}

	r.trees = r.trees[:bestRound+1]
	return r, nil
}

// Predict scores a single feature row.
func (r *Regressor) Predict(x []float64) float64 {
	out := r.base
	for _, t := range r.trees {
		out += r.params.LearningRate * t.predict(x)
	}
	return out
}

// PredictAll scores every row.
func (r *Regressor) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = r.Predict(row)
	}
	return out
}

// Rounds reports how many trees survived early stopping.
func (r *Regressor) Rounds() int { return len(r.trees) }

func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	k := int(fraction * float64(n))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	perm := rng.Perm(n)[:k]
	return perm
}

func sampleCols(rng *rand.Rand, n int, fraction float64) []int {
	k := int(fraction * float64(n))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return rng.Perm(n)[:k]
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
