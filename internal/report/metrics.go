// Package report derives performance metrics from equity curves and exports
// optimization results to spreadsheet form.
package report

import (
	"math"
	"strings"

	"egx-predictor/models"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// Metrics summarizes one simulated equity curve.
type Metrics struct {
	TotalReturnPct float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	WinRatePct     float64
	DaysTraded     int
}

// Summarize computes curve-level performance metrics. An empty curve yields
// the zero value.
func Summarize(curve []models.EquityPoint) Metrics {
	if len(curve) == 0 {
		return Metrics{}
	}

	equity := make([]float64, len(curve))
	returns := make([]float64, len(curve))
	for i, p := range curve {
		equity[i] = p.Equity
		returns[i] = p.DailyPct
	}

	m := Metrics{DaysTraded: len(equity)}
	if equity[0] != 0 {
		m.TotalReturnPct = round2((equity[len(equity)-1] - equity[0]) / equity[0] * 100)
	}

	runningMax := equity[0]
	maxDrawdown := 0.0
	for _, e := range equity {
		if e > runningMax {
			runningMax = e
		}
		if runningMax != 0 {
			dd := (e - runningMax) / runningMax * 100
			if dd < maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	m.MaxDrawdownPct = round2(maxDrawdown)

	if len(returns) > 1 {
		mean := meanOf(returns)
		std := stdDev(returns, mean)
		if std != 0 {
			m.SharpeRatio = round2(mean / std * math.Sqrt(tradingDaysPerYear))
		}
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	m.WinRatePct = round2(float64(wins) / float64(len(returns)) * 100)

	return m
}

// ExpectedPercent looks up the predicted return for one ticker in a ranked
// record list, case-insensitively.
func ExpectedPercent(ticker string, records []models.PredictionRecord) (float64, bool) {
	for _, rec := range records {
		if strings.EqualFold(rec.Ticker, ticker) {
			return rec.Predicted, true
		}
	}
	return 0, false
}

func meanOf(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stdDev(v []float64, mean float64) float64 {
	if len(v) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
