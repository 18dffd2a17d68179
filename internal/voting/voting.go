// Package voting pools several days of stored ranked predictions into one
// consensus basket.
package voting

import (
	"sort"
	"time"

	"egx-predictor/models"
)

// Vote combines the last votingDays of stored predictions at or before asOf
// into an ordered basket of at most topK tickers. Each day contributes its
// first topK records as votes; tickers rank by vote count, then by the mean
// of their recorded predicted returns. Days without stored predictions are
// skipped; if no day contributed, the basket is empty.
func Vote(store models.PredictionStore, dates []time.Time, asOf time.Time, votingDays, topK int) []string {
	relevant := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !d.After(asOf) {
			relevant = append(relevant, d)
		}
	}
	sort.Slice(relevant, func(i, j int) bool { return relevant[i].Before(relevant[j]) })
	if len(relevant) > votingDays {
		relevant = relevant[len(relevant)-votingDays:]
	}

	counts := make(map[string]int)
	scores := make(map[string][]float64)
	var order []string // first-appearance order, keeps ranking stable

	for _, d := range relevant {
		records, ok := store.Get(d)
		if !ok {
			continue
		}
		if len(records) > topK {
			records = records[:topK]
		}
		for _, rec := range records {
			if counts[rec.Ticker] == 0 {
				order = append(order, rec.Ticker)
			}
			counts[rec.Ticker]++
			scores[rec.Ticker] = append(scores[rec.Ticker], rec.Predicted)
		}
	}

	if len(counts) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return meanOf(scores[a]) > meanOf(scores[b])
	})

	if len(order) > topK {
		order = order[:topK]
	}
	return order
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
