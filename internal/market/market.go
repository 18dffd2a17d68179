// Package market derives the trading-day calendar and the daily-returns
// matrix from downloaded bar history.
package market

import (
	"math"
	"sort"
	"time"

	"egx-predictor/models"
)

// CircuitBreaker caps implausible single-day moves: any |return| above it is
// treated as bad-tick data and clipped to zero.
const CircuitBreaker = 0.25

// TradingDays extracts the sorted list of valid trading dates from one
// reference ticker's bars, excluding any date in skip.
func TradingDays(bars []models.Bar, skip map[time.Time]bool) []time.Time {
	dates := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		d := models.NormalizeDate(b.Date)
		if skip[d] {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// DailyReturns builds the date-indexed, ticker-columned matrix of simple
// daily close-to-close returns across all tickers with data. A ticker's
// first observed day and any day it did not trade carry 0.0; gaps compare
// against the last known close. Returns beyond the circuit breaker are
// clipped to 0.0.
func DailyReturns(bars map[string][]models.Bar) map[time.Time]map[string]float64 {
	dateSet := make(map[time.Time]bool)
	closes := make(map[string]map[time.Time]float64)

	for ticker, series := range bars {
		if len(series) == 0 {
			continue
		}
		byDate := make(map[time.Time]float64, len(series))
		for _, b := range series {
			d := models.NormalizeDate(b.Date)
			byDate[d] = b.Close
			dateSet[d] = true
		}
		closes[ticker] = byDate
	}

	if len(closes) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	matrix := make(map[time.Time]map[string]float64, len(dates))
	for _, d := range dates {
		matrix[d] = make(map[string]float64, len(closes))
	}

	for ticker, byDate := range closes {
		prev := math.NaN()
		for _, d := range dates {
			r := 0.0
			if c, ok := byDate[d]; ok {
				if !math.IsNaN(prev) && prev != 0 {
					r = (c - prev) / prev
				}
				prev = c
			}
			if math.Abs(r) > CircuitBreaker {
				r = 0.0
			}
			matrix[d][ticker] = r
		}
	}

	return matrix
}
