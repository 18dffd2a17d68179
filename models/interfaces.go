package models

import (
	"context"
	"time"
)

type TickerSource interface {
	Tickers(ctx context.Context) ([]string, error)
}

type BarDownloader interface {
	Download(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// PredictionStore persists one ranked prediction list per calendar date.
// Get reports absence (missing date) through its second return value rather
// than an error.
type PredictionStore interface {
	Put(date time.Time, records []PredictionRecord) error
	Get(date time.Time) ([]PredictionRecord, bool)
	Has(date time.Time) bool
	Count() int
	Latest() (time.Time, bool)
}
