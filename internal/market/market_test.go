package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egx-predictor/models"
)

func day(s string) time.Time {
	d, err := time.ParseInLocation(models.DateKey, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func barsFromCloses(start string, closes ...float64) []models.Bar {
	d := day(start)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1000}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func TestTradingDaysSortedAndSkipped(t *testing.T) {
	bars := []models.Bar{
		{Date: day("2025-01-08")},
		{Date: day("2025-01-06")},
		{Date: day("2025-01-07")},
	}
	skip := map[time.Time]bool{day("2025-01-07"): true}

	got := TradingDays(bars, skip)
	assert.Equal(t, []time.Time{day("2025-01-06"), day("2025-01-08")}, got)
}

func TestDailyReturnsBasic(t *testing.T) {
	bars := map[string][]models.Bar{
		"A": barsFromCloses("2025-01-06", 100, 110, 99),
	}

	m := DailyReturns(bars)
	require.Len(t, m, 3)
	assert.Equal(t, 0.0, m[day("2025-01-06")]["A"]) // no prior close
	assert.InDelta(t, 0.10, m[day("2025-01-07")]["A"], 1e-12)
	assert.InDelta(t, -0.10, m[day("2025-01-08")]["A"], 1e-12)
}

func TestDailyReturnsCircuitBreaker(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{name: "40% clipped", closes: []float64{100, 140}, want: 0.0},
		{name: "24% passes", closes: []float64{100, 124}, want: 0.24},
		{name: "-40% clipped", closes: []float64{100, 60}, want: 0.0},
		{name: "exactly 25% passes", closes: []float64{100, 125}, want: 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DailyReturns(map[string][]models.Bar{
				"A": barsFromCloses("2025-01-06", tt.closes...),
			})
			assert.InDelta(t, tt.want, m[day("2025-01-07")]["A"], 1e-12)
		})
	}
}

func TestDailyReturnsGapsCompareToLastKnownClose(t *testing.T) {
	// B misses 01-07; its 01-07 return is 0 and its 01-08 return compares
	// against the 01-06 close.
	bars := map[string][]models.Bar{
		"A": barsFromCloses("2025-01-06", 100, 100, 100),
		"B": {
			{Date: day("2025-01-06"), Close: 50, Volume: 1},
			{Date: day("2025-01-08"), Close: 55, Volume: 1},
		},
	}

	m := DailyReturns(bars)
	assert.Equal(t, 0.0, m[day("2025-01-07")]["B"])
	assert.InDelta(t, 0.10, m[day("2025-01-08")]["B"], 1e-12)
}

func TestDailyReturnsEmptyInput(t *testing.T) {
	assert.Nil(t, DailyReturns(nil))
	assert.Nil(t, DailyReturns(map[string][]models.Bar{"A": nil}))
}
