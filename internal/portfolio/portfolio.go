// Package portfolio replays a sequence of trading days, allocating equal
// slots across a voted basket with day-to-day carry-over of retained
// positions.
package portfolio

import (
	"math"
	"sort"
	"time"

	"egx-predictor/models"
)

// Simulate runs a daily-rebalancing simulation over the ordered date
// sequence. returns maps date -> ticker -> realized daily return;
// basketsByDay maps each date to its voted basket. It returns the terminal
// equity and the per-day equity curve. An under-filled basket on the first
// day cannot be simulated and yields zero equity with an empty curve.
func Simulate(
	dates []time.Time,
	returns map[time.Time]map[string]float64,
	basketsByDay map[time.Time][]string,
	topK int,
	startEquity float64,
) (float64, []models.EquityPoint) {
	if len(dates) == 0 {
		return 0, nil
	}

	first := basketsByDay[dates[0]]
	if len(first) < topK {
		return 0, nil
	}

	slots := make(map[string]float64, topK)
	for _, ticker := range first[:topK] {
		slots[ticker] = startEquity / float64(topK)
	}

	curve := make([]models.EquityPoint, 0, len(dates))
	prevEquity := startEquity
	totalEquity := startEquity

	for i, date := range dates {
		if i == 0 {
			curve = append(curve, newPoint(date, startEquity, 0, slots))
			continue
		}

		if dayReturns, ok := returns[date]; ok {
			for ticker := range slots {
				if r, ok := dayReturns[ticker]; ok {
					slots[ticker] *= 1 + r
				}
			}
		}

		totalEquity = 0
		for _, v := range slots {
			totalEquity += v
		}

		dailyPct := 0.0
		if prevEquity != 0 {
			dailyPct = (totalEquity - prevEquity) / prevEquity * 100
		}
		prevEquity = totalEquity

		curve = append(curve, newPoint(date, totalEquity, dailyPct, slots))

		if i+1 == len(dates) {
			break
		}
		slots = rebalance(slots, totalEquity, basketsByDay[dates[i+1]], topK)
	}

	return totalEquity, curve
}

// rebalance is the pure state transition from today's slots to tomorrow's:
// tickers still present in the next basket keep their current dollar value
// (up to topK retained), and the freed equity is split evenly across the
// newly admitted basket tickers.
func rebalance(slots map[string]float64, totalEquity float64, next []string, topK int) map[string]float64 {
	newSlots := make(map[string]float64, topK)

	inNext := make(map[string]bool, len(next))
	for _, t := range next {
		inNext[t] = true
	}

	// Scan current holdings in ticker order so retention is deterministic.
	held := make([]string, 0, len(slots))
	for t := range slots {
		held = append(held, t)
	}
	sort.Strings(held)

	retained := 0.0
	for _, t := range held {
		if inNext[t] && len(newSlots) < topK {
			newSlots[t] = slots[t]
			retained += slots[t]
		}
	}

	// Denominator floored at one: retention is capped at topK, but a zero
	// divisor must never reach the allocation.
	open := topK - len(newSlots)
	if open < 1 {
		open = 1
	}
	allocation := (totalEquity - retained) / float64(open)

	for _, t := range next {
		if len(newSlots) == topK {
			break
		}
		if _, ok := newSlots[t]; !ok {
			newSlots[t] = allocation
		}
	}

	return newSlots
}

func newPoint(date time.Time, equity, dailyPct float64, slots map[string]float64) models.EquityPoint {
	holdings := make([]models.Holding, 0, len(slots))
	for ticker, value := range slots {
		holdings = append(holdings, models.Holding{Ticker: ticker, Value: round2(value)})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })

	return models.EquityPoint{
		Date:     date.Format(models.DateKey),
		Equity:   round2(equity),
		DailyPct: round2(dailyPct),
		Holdings: holdings,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
