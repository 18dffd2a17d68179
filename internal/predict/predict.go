// Package predict trains a fresh boosted-tree model per (ticker, as-of date)
// request and turns its calibrated output into a single forward return
// estimate. No model state survives between calls.
package predict

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"egx-predictor/internal/boost"
	"egx-predictor/internal/features"
	"egx-predictor/models"
)

// MinRows is the minimum number of valid feature rows required before a
// prediction is attempted. Below it the outcome is "no signal", not an error.
const MinRows = 60

// trainFraction is the chronological train share of the feature rows.
const trainFraction = 0.75

// minCalibrationRows is the smallest test split worth fitting the isotonic
// calibrator on.
const minCalibrationRows = 30

// Predictor produces next-period return estimates from raw bar history.
type Predictor struct {
	params boost.Params
	logger zerolog.Logger
}

// New creates a Predictor with the production boosting hyperparameters.
func New() *Predictor {
	return &Predictor{
		params: boost.DefaultParams(),
		logger: log.With().Str("component", "predictor").Logger(),
	}
}

// NextReturn trains on the ticker's history and returns the expected
// cumulative return over the next pctWindow sessions, rounded to two
// decimals. ok is false when history is too short to produce a signal.
func (p *Predictor) NextReturn(bars []models.Bar, volWindow, pctWindow int) (float64, bool, error) {
	tbl := features.Build(bars, volWindow, pctWindow)
	if tbl.Len() < MinRows {
		return 0, false, nil
	}

	x := tbl.Matrix()
	y := tbl.Target()

	// Chronological split: shuffling would leak future rows into training.
	split := int(float64(len(x)) * trainFraction)
	trainX, testX := x[:split], x[split:]
	trainY, testY := y[:split], y[split:]

	model, err := boost.Fit(trainX, trainY, testX, testY, p.params)
	if err != nil {
		return 0, false, fmt.Errorf("training model: %w", err)
	}

	var calibrator *boost.Isotonic
	if len(testX) > minCalibrationRows {
		calibrator, err = boost.FitIsotonic(model.PredictAll(testX), testY)
		if err != nil {
			return 0, false, fmt.Errorf("fitting calibrator: %w", err)
		}
	}

	predicted := model.Predict(x[len(x)-1])
	if calibrator != nil {
		predicted = calibrator.Predict(predicted)
	}

	// The target is a pctWindow-day average of overlapping daily returns.
	// Scale it back to a cumulative total and subtract the already-known
	// portion of the window.
	total := predicted*float64(pctWindow) - tailSum(y, pctWindow-1)
	return round2(total), true, nil
}

// ProcessTicker runs NextReturn for one ticker, absorbing any failure so a
// batch over many tickers never aborts. ok is false when there is no
// prediction, whether from insufficient data or a swallowed error.
func (p *Predictor) ProcessTicker(ticker string, bars []models.Bar, volWindow, pctWindow int) (rec models.PredictionRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn().Str("ticker", ticker).Interface("panic", r).Msg("Prediction panicked, skipping ticker")
			ok = false
		}
	}()

	if len(bars) == 0 {
		return models.PredictionRecord{}, false
	}

	predicted, ok, err := p.NextReturn(bars, volWindow, pctWindow)
	if err != nil {
		p.logger.Warn().Err(err).Str("ticker", ticker).Msg("Prediction failed, skipping ticker")
		return models.PredictionRecord{}, false
	}
	if !ok {
		return models.PredictionRecord{}, false
	}
	return models.PredictionRecord{Ticker: ticker, Predicted: predicted}, true
}

func tailSum(v []float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if n > len(v) {
		n = len(v)
	}
	sum := 0.0
	for _, x := range v[len(v)-n:] {
		sum += x
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
