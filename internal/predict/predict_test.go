package predict

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egx-predictor/models"
)

func generateBars(n int, seed int64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, n)
	price := 20.0
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.03
		high := price * (1 + rng.Float64()*0.015)
		low := price * (1 - rng.Float64()*0.015)
		bars[i] = models.Bar{
			Date:   date,
			Open:   low + rng.Float64()*(high-low),
			High:   high,
			Low:    low,
			Close:  price,
			Volume: int64(5000 + rng.Intn(5000)),
		}
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

func TestNextReturnInsufficientHistory(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		bars []models.Bar
	}{
		{name: "no bars", bars: nil},
		{name: "a handful", bars: generateBars(10, 1)},
		{name: "just under the warmup plus minimum", bars: generateBars(70, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, pctWindow := range []int{5, 10, 20} {
				_, ok, err := p.NextReturn(tt.bars, 20, pctWindow)
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestNextReturnProducesRoundedSignal(t *testing.T) {
	p := New()
	bars := generateBars(220, 3)

	got, ok, err := p.NextReturn(bars, 20, 20)
	require.NoError(t, err)
	require.True(t, ok)

	// Rounded to two decimals.
	assert.Equal(t, math.Round(got*100)/100, got)
}

func TestNextReturnDeterministic(t *testing.T) {
	p := New()
	bars := generateBars(200, 4)

	a, okA, err := p.NextReturn(bars, 20, 20)
	require.NoError(t, err)
	b, okB, err := p.NextReturn(bars, 20, 20)
	require.NoError(t, err)

	require.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}

func TestProcessTickerSkipsEmptySeries(t *testing.T) {
	p := New()

	_, ok := p.ProcessTicker("INFI.CA", nil, 20, 20)
	assert.False(t, ok)
}

func TestProcessTickerReturnsRecord(t *testing.T) {
	p := New()
	bars := generateBars(220, 5)

	rec, ok := p.ProcessTicker("TMGH.CA", bars, 20, 20)
	require.True(t, ok)
	assert.Equal(t, "TMGH.CA", rec.Ticker)
}
