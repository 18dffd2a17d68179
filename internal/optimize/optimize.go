// Package optimize sweeps the (top_k, voting_days) parameter grid: it
// resolves the universe and calendar, backfills missing daily predictions,
// simulates every parameter pair and reports the pair with the highest
// terminal equity.
package optimize

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"egx-predictor/internal/market"
	"egx-predictor/internal/portfolio"
	"egx-predictor/internal/predict"
	"egx-predictor/internal/report"
	"egx-predictor/internal/voting"
	"egx-predictor/models"
)

const (
	// minTradingDays is the smallest usable calendar; a shorter window
	// cannot support voting plus simulation.
	minTradingDays = 10

	// maxPredictionDates caps how many recent dates get predictions
	// backfilled per run.
	maxPredictionDates = 30

	// minStoredDates is the smallest prediction history the sweep accepts.
	minStoredDates = 5
)

// BatchDownloader fetches daily bars for a whole ticker list. Tickers whose
// download failed are kept with an empty series.
type BatchDownloader interface {
	DownloadAll(ctx context.Context, tickers []string, start, end time.Time) (map[string][]models.Bar, error)
}

// Optimizer wires the universe, bar history, prediction store and simulator
// into one sequential parameter sweep.
type Optimizer struct {
	tickers     models.TickerSource
	downloader  BatchDownloader
	store       models.PredictionStore
	predictor   *predict.Predictor
	params      *report.OptimParams
	startEquity float64
	now         func() time.Time
	logger      zerolog.Logger
}

// New builds an Optimizer. params supplies per-ticker SMA windows; pass the
// LoadOptimParams result so absent exports fall back to 20/20.
func New(
	tickers models.TickerSource,
	downloader BatchDownloader,
	store models.PredictionStore,
	params *report.OptimParams,
	startEquity float64,
) *Optimizer {
	return &Optimizer{
		tickers:     tickers,
		downloader:  downloader,
		store:       store,
		predictor:   predict.New(),
		params:      params,
		startEquity: startEquity,
		now:         time.Now,
		logger:      log.With().Str("component", "optimizer").Logger(),
	}
}

// Run executes the full sweep over topKRange crossed with votingRange. The
// lookback window ends yesterday. Whole-run failures (no tickers, too few
// trading days or stored predictions, no viable pair) come back as a
// *models.OptError; per-ticker and per-pair failures are logged and skipped.
func (o *Optimizer) Run(ctx context.Context, topKRange, votingRange []int, lookbackDays int) (*models.OptReport, error) {
	o.logger.Info().Msg("Starting parameter optimization")

	tickers, err := o.tickers.Tickers(ctx)
	if err != nil || len(tickers) == 0 {
		return nil, &models.OptError{
			Message:    "could not fetch ticker list",
			Suggestion: "check connectivity to the universe source",
		}
	}

	asOf := models.NormalizeDate(o.now().AddDate(0, 0, -1))
	start := asOf.AddDate(0, 0, -lookbackDays)

	o.logger.Info().
		Str("start", start.Format(models.DateKey)).
		Str("end", asOf.Format(models.DateKey)).
		Int("tickers", len(tickers)).
		Msg("Downloading bar history")

	bars, err := o.downloader.DownloadAll(ctx, tickers, start, asOf)
	if err != nil {
		return nil, fmt.Errorf("downloading bars: %w", err)
	}

	dates := o.calendar(tickers, bars)
	if len(dates) < minTradingDays {
		return nil, &models.OptError{
			Message:    "insufficient trading dates",
			Details:    fmt.Sprintf("only %d trading dates found, need at least %d", len(dates), minTradingDays),
			Suggestion: "increase lookback_days",
		}
	}
	o.logger.Info().Int("dates", len(dates)).Msg("Resolved trading calendar")

	if err := o.backfillPredictions(ctx, dates, bars); err != nil {
		return nil, err
	}

	if stored := o.store.Count(); stored < minStoredDates {
		return nil, &models.OptError{
			Message:    "not enough prediction history",
			Details:    fmt.Sprintf("only %d prediction dates stored, need at least %d", stored, minStoredDates),
			Suggestion: "increase lookback_days or rerun once more market data is available",
		}
	}

	returns := market.DailyReturns(bars)
	if len(returns) == 0 {
		return nil, &models.OptError{
			Message:    "failed to compute stock returns",
			Suggestion: "check the downloaded bar data",
		}
	}

	results, attempted := o.sweep(ctx, dates, returns, topKRange, votingRange)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	successful := make([]models.GridResult, 0, len(results))
	for _, r := range results {
		if len(r.Curve) > 0 && r.FinalEquity > 0 {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		return nil, &models.OptError{
			Message:    "all optimization attempts failed",
			Details:    fmt.Sprintf("tried %d combinations, %d ran but none succeeded", attempted, len(results)),
			Suggestion: "reduce lookback_days or use smaller parameter ranges",
			Attempted:  attempted,
			Completed:  len(results),
		}
	}
	o.logger.Info().Int("successful", len(successful)).Int("attempted", attempted).Msg("Sweep complete")

	best := successful[0]
	for _, r := range successful[1:] {
		if r.FinalEquity > best.FinalEquity {
			best = r
		}
	}

	heatmap, topKLabels, votingLabels := buildHeatmap(results)

	return &models.OptReport{
		Best: models.BestParams{
			TopK:        best.TopK,
			VotingDays:  best.VotingDays,
			FinalEquity: best.FinalEquity,
		},
		Results:          results,
		SuccessfulCount:  len(successful),
		TotalAttempts:    attempted,
		Heatmap:          heatmap,
		TopKLabels:       topKLabels,
		VotingDaysLabels: votingLabels,
	}, nil
}

// calendar derives trading days from the first ticker with bar data, in the
// universe's own order so the reference choice is deterministic.
func (o *Optimizer) calendar(tickers []string, bars map[string][]models.Bar) []time.Time {
	for _, t := range tickers {
		if len(bars[t]) > 0 {
			return market.TradingDays(bars[t], nil)
		}
	}
	return nil
}

// backfillPredictions stores a ranked prediction list for each recent date
// that lacks one. Per-ticker failures are absorbed inside ProcessTicker; a
// date with zero successful predictions is simply left without a record.
func (o *Optimizer) backfillPredictions(ctx context.Context, dates []time.Time, bars map[string][]models.Bar) error {
	n := len(dates)
	if n > maxPredictionDates {
		dates = dates[n-maxPredictionDates:]
	}

	tickers := make([]string, 0, len(bars))
	for t := range bars {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	generated := 0
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.store.Has(date) {
			continue
		}

		var records []models.PredictionRecord
		for _, ticker := range tickers {
			history := truncate(bars[ticker], date)
			if len(history) < predict.MinRows {
				continue
			}
			rec, ok := o.predictor.ProcessTicker(ticker, history, o.params.VolWindow(ticker), o.params.PctWindow(ticker))
			if ok {
				records = append(records, rec)
			}
		}
		if len(records) == 0 {
			continue
		}

		sort.SliceStable(records, func(i, j int) bool { return records[i].Predicted > records[j].Predicted })
		if err := o.store.Put(date, records); err != nil {
			o.logger.Error().Err(err).Str("date", date.Format(models.DateKey)).Msg("Failed to save predictions")
			continue
		}
		generated++
	}

	o.logger.Info().Int("generated", generated).Msg("Prediction backfill complete")
	return nil
}

// sweep simulates every parameter pair, absorbing per-pair failures so one
// bad combination never aborts the rest.
func (o *Optimizer) sweep(
	ctx context.Context,
	dates []time.Time,
	returns map[time.Time]map[string]float64,
	topKRange, votingRange []int,
) ([]models.GridResult, int) {
	attempted := 0
	results := make([]models.GridResult, 0, len(topKRange)*len(votingRange))

	for _, topK := range topKRange {
		for _, votingDays := range votingRange {
			if ctx.Err() != nil {
				return results, attempted
			}
			attempted++

			result, ok := o.runPair(dates, returns, topK, votingDays)
			if !ok {
				continue
			}
			results = append(results, result)
		}
	}
	return results, attempted
}

func (o *Optimizer) runPair(
	dates []time.Time,
	returns map[time.Time]map[string]float64,
	topK, votingDays int,
) (result models.GridResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Int("top_k", topK).
				Int("voting_days", votingDays).
				Interface("panic", r).
				Msg("Simulation panicked, skipping pair")
			ok = false
		}
	}()

	basketsByDay := make(map[time.Time][]string, len(dates))
	for _, day := range dates {
		basket := voting.Vote(o.store, dates, day, votingDays, topK)
		if len(basket) > 0 {
			basketsByDay[day] = basket
		}
	}
	if len(basketsByDay) == 0 {
		o.logger.Warn().Int("top_k", topK).Int("voting_days", votingDays).Msg("No voted baskets for pair")
		return models.GridResult{}, false
	}

	final, curve := portfolio.Simulate(dates, returns, basketsByDay, topK, o.startEquity)
	return models.GridResult{
		TopK:        topK,
		VotingDays:  votingDays,
		FinalEquity: round2(final),
		Curve:       curve,
	}, true
}

// buildHeatmap arranges every result's terminal equity on sorted distinct
// axis labels. Combinations with no result carry 0.0.
func buildHeatmap(results []models.GridResult) ([][]float64, []int, []int) {
	topKLabels := distinctSorted(results, func(r models.GridResult) int { return r.TopK })
	votingLabels := distinctSorted(results, func(r models.GridResult) int { return r.VotingDays })

	heatmap := make([][]float64, len(topKLabels))
	for i, k := range topKLabels {
		row := make([]float64, len(votingLabels))
		for j, v := range votingLabels {
			for _, r := range results {
				if r.TopK == k && r.VotingDays == v {
					row[j] = r.FinalEquity
					break
				}
			}
		}
		heatmap[i] = row
	}
	return heatmap, topKLabels, votingLabels
}

func distinctSorted(results []models.GridResult, key func(models.GridResult) int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range results {
		if k := key(r); !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

func truncate(bars []models.Bar, asOf time.Time) []models.Bar {
	cut := len(bars)
	for i, b := range bars {
		if models.NormalizeDate(b.Date).After(asOf) {
			cut = i
			break
		}
	}
	return bars[:cut]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
