package models

import (
	"fmt"
	"time"
)

// Bar represents a single daily OHLCV session for one ticker. Dates are
// normalized to midnight UTC; zero-volume sessions are dropped by the
// downloader before a Bar is ever constructed.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PredictionRecord is one ticker's predicted total return over the upcoming
// forecast horizon. Records for a date are persisted ranked descending by
// Predicted.
type PredictionRecord struct {
	Ticker    string  `json:"ticker"`
	Predicted float64 `json:"predicted"`
}

// Holding is one portfolio slot in an equity curve row.
type Holding struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"value"`
}

// EquityPoint is one immutable day of a simulated equity curve. Holdings are
// sorted alphabetically by ticker.
type EquityPoint struct {
	Date     string    `json:"date"`
	Equity   float64   `json:"equity"`
	DailyPct float64   `json:"daily_pct"`
	Holdings []Holding `json:"holdings"`
}

// GridResult is the outcome of one (top_k, voting_days) simulation.
type GridResult struct {
	TopK        int           `json:"top_k"`
	VotingDays  int           `json:"voting_days"`
	FinalEquity float64       `json:"final_equity"`
	Curve       []EquityPoint `json:"equity_curve"`
}

// BestParams identifies the parameter pair with the highest terminal equity.
type BestParams struct {
	TopK        int     `json:"top_k"`
	VotingDays  int     `json:"voting_days"`
	FinalEquity float64 `json:"final_equity"`
}

// OptReport is the full output of a parameter sweep. Heatmap is indexed by
// TopKLabels (rows) and VotingDaysLabels (columns); combinations that never
// produced a result default to 0.0.
type OptReport struct {
	Best             BestParams   `json:"best_params"`
	Results          []GridResult `json:"all_results"`
	SuccessfulCount  int          `json:"successful_count"`
	TotalAttempts    int          `json:"total_attempts"`
	Heatmap          [][]float64  `json:"heatmap"`
	TopKLabels       []int        `json:"top_k_labels"`
	VotingDaysLabels []int        `json:"voting_days_labels"`
}

// OptError is a structured, user-facing failure for operations that are
// meaningless as a whole (no tickers, no trading days, no viable parameter
// pair). It carries a cause, optional details and a suggested fix instead of
// letting a raw fault reach the caller.
type OptError struct {
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Attempted  int    `json:"attempted,omitempty"`
	Completed  int    `json:"completed,omitempty"`
}

func (e *OptError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}
