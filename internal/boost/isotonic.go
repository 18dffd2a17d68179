package boost

import (
	"fmt"
	"sort"
)

// Isotonic is a monotonic non-decreasing calibrator fitted with the pool
// adjacent violators algorithm. Prediction interpolates linearly between the
// fitted points; inputs outside the fitted range are clipped to the nearest
// boundary.
type Isotonic struct {
	x []float64
	y []float64
}

// FitIsotonic fits the calibrator mapping raw values to targets.
func FitIsotonic(raw, target []float64) (*Isotonic, error) {
	if len(raw) == 0 || len(raw) != len(target) {
		return nil, fmt.Errorf("isotonic: invalid input: %d raw, %d target", len(raw), len(target))
	}

	type pair struct{ x, y float64 }
	pairs := make([]pair, len(raw))
	for i := range raw {
		pairs[i] = pair{raw[i], target[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })

	// Collapse duplicate x values to their mean target.
	xs := make([]float64, 0, len(pairs))
	ys := make([]float64, 0, len(pairs))
	ws := make([]float64, 0, len(pairs))
	for i := 0; i < len(pairs); {
		j := i
		sum := 0.0
		for j < len(pairs) && pairs[j].x == pairs[i].x {
			sum += pairs[j].y
			j++
		}
		xs = append(xs, pairs[i].x)
		ys = append(ys, sum/float64(j-i))
		ws = append(ws, float64(j-i))
		i = j
	}

	// Pool adjacent violators: merge neighboring blocks until the fitted
	// values are non-decreasing.
	type block struct {
		lo, hi int
		value  float64
		weight float64
	}
	blocks := make([]block, 0, len(xs))
	for i := range xs {
		blocks = append(blocks, block{lo: i, hi: i, value: ys[i], weight: ws[i]})
		for len(blocks) > 1 && blocks[len(blocks)-2].value > blocks[len(blocks)-1].value {
			a := blocks[len(blocks)-2]
			b := blocks[len(blocks)-1]
			merged := block{
				lo:     a.lo,
				hi:     b.hi,
				value:  (a.value*a.weight + b.value*b.weight) / (a.weight + b.weight),
				weight: a.weight + b.weight,
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, merged)
		}
	}

	fitted := make([]float64, len(xs))
	for _, b := range blocks {
		for i := b.lo; i <= b.hi; i++ {
			fitted[i] = b.value
		}
	}

	return &Isotonic{x: xs, y: fitted}, nil
}

// Predict maps a raw value through the calibration curve.
func (c *Isotonic) Predict(v float64) float64 {
	if v <= c.x[0] {
		return c.y[0]
	}
	if v >= c.x[len(c.x)-1] {
		return c.y[len(c.y)-1]
	}
	i := sort.SearchFloat64s(c.x, v)
	if c.x[i] == v {
		return c.y[i]
	}
	// Linear interpolation between the surrounding fitted points.
	x0, x1 := c.x[i-1], c.x[i]
	y0, y1 := c.y[i-1], c.y[i]
	return y0 + (y1-y0)*(v-x0)/(x1-x0)
}
