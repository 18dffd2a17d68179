package optimize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egx-predictor/internal/report"
	"egx-predictor/models"
)

type fakeSource struct {
	tickers []string
	err     error
}

func (f *fakeSource) Tickers(ctx context.Context) ([]string, error) {
	return f.tickers, f.err
}

type fakeDownloader struct {
	bars map[string][]models.Bar
}

func (f *fakeDownloader) DownloadAll(ctx context.Context, tickers []string, start, end time.Time) (map[string][]models.Bar, error) {
	return f.bars, nil
}

type memStore struct {
	byDate map[string][]models.PredictionRecord
}

func newMemStore() *memStore {
	return &memStore{byDate: make(map[string][]models.PredictionRecord)}
}

func (s *memStore) Put(date time.Time, records []models.PredictionRecord) error {
	s.byDate[date.Format(models.DateKey)] = records
	return nil
}

func (s *memStore) Get(date time.Time) ([]models.PredictionRecord, bool) {
	recs, ok := s.byDate[date.Format(models.DateKey)]
	return recs, ok
}

func (s *memStore) Has(date time.Time) bool {
	_, ok := s.byDate[date.Format(models.DateKey)]
	return ok
}

func (s *memStore) Count() int { return len(s.byDate) }

func (s *memStore) Latest() (time.Time, bool) {
	var latest time.Time
	found := false
	for key := range s.byDate {
		d, err := time.Parse(models.DateKey, key)
		if err != nil {
			continue
		}
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	return latest, found
}

func day(n int) time.Time {
	return time.Date(2025, 6, n, 0, 0, 0, 0, time.UTC)
}

// steadyBars returns n consecutive daily bars whose close compounds by gain
// each session.
func steadyBars(n int, gain float64) []models.Bar {
	bars := make([]models.Bar, n)
	price := 10.0
	for i := range bars {
		bars[i] = models.Bar{
			Date:   day(i + 1),
			Open:   price,
			High:   price * 1.02,
			Low:    price * 0.98,
			Close:  price,
			Volume: 10000,
		}
		price *= 1 + gain
	}
	return bars
}

func newTestOptimizer(src *fakeSource, bars map[string][]models.Bar, store models.PredictionStore) *Optimizer {
	params := report.LoadOptimParams("testdata/nonexistent")
	o := New(src, &fakeDownloader{bars: bars}, store, params, 100.0)
	o.now = func() time.Time { return day(13) }
	return o
}

func TestRunSingleCellGrid(t *testing.T) {
	bars := map[string][]models.Bar{
		"AJWA.CA": steadyBars(12, 0.01),
		"TMGH.CA": steadyBars(12, 0.0),
	}
	store := newMemStore()
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(day(i), []models.PredictionRecord{
			{Ticker: "AJWA.CA", Predicted: 2.5},
			{Ticker: "TMGH.CA", Predicted: 1.0},
		}))
	}

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA", "TMGH.CA"}}, bars, store)
	rep, err := o.Run(context.Background(), []int{1}, []int{1}, 30)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Best.TopK)
	assert.Equal(t, 1, rep.Best.VotingDays)
	assert.Equal(t, 1, rep.SuccessfulCount)
	assert.Equal(t, 1, rep.TotalAttempts)

	require.Len(t, rep.Heatmap, 1)
	require.Len(t, rep.Heatmap[0], 1)
	assert.Equal(t, rep.Best.FinalEquity, rep.Heatmap[0][0])
	assert.Equal(t, []int{1}, rep.TopKLabels)
	assert.Equal(t, []int{1}, rep.VotingDaysLabels)

	// 100 compounding at 1% over the 11 post-initial sessions.
	assert.InDelta(t, 111.57, rep.Best.FinalEquity, 0.01)
	require.Len(t, rep.Results, 1)
	assert.Len(t, rep.Results[0].Curve, 12)
}

func TestRunNoTickers(t *testing.T) {
	o := newTestOptimizer(&fakeSource{err: errors.New("boom")}, nil, newMemStore())

	_, err := o.Run(context.Background(), []int{1}, []int{1}, 30)
	var optErr *models.OptError
	require.ErrorAs(t, err, &optErr)
	assert.Contains(t, optErr.Message, "ticker list")
}

func TestRunTooFewTradingDays(t *testing.T) {
	bars := map[string][]models.Bar{"AJWA.CA": steadyBars(5, 0.01)}

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA"}}, bars, newMemStore())
	_, err := o.Run(context.Background(), []int{1}, []int{1}, 30)

	var optErr *models.OptError
	require.ErrorAs(t, err, &optErr)
	assert.Contains(t, optErr.Message, "insufficient trading dates")
	assert.Contains(t, optErr.Details, "only 5")
}

func TestRunTooFewStoredPredictions(t *testing.T) {
	// Series too short to train on, so the backfill cannot top up the store.
	bars := map[string][]models.Bar{"AJWA.CA": steadyBars(12, 0.01)}
	store := newMemStore()
	require.NoError(t, store.Put(day(11), []models.PredictionRecord{{Ticker: "AJWA.CA", Predicted: 1.0}}))
	require.NoError(t, store.Put(day(12), []models.PredictionRecord{{Ticker: "AJWA.CA", Predicted: 1.0}}))

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA"}}, bars, store)
	_, err := o.Run(context.Background(), []int{1}, []int{1}, 30)

	var optErr *models.OptError
	require.ErrorAs(t, err, &optErr)
	assert.Contains(t, optErr.Message, "not enough prediction history")
}

func TestRunNoViablePair(t *testing.T) {
	// Only one ticker is ever predicted, so a top_k of 3 can never fill the
	// first basket and every attempt fails.
	bars := map[string][]models.Bar{"AJWA.CA": steadyBars(12, 0.01)}
	store := newMemStore()
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(day(i), []models.PredictionRecord{{Ticker: "AJWA.CA", Predicted: 2.5}}))
	}

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA"}}, bars, store)
	_, err := o.Run(context.Background(), []int{3}, []int{1}, 30)

	var optErr *models.OptError
	require.ErrorAs(t, err, &optErr)
	assert.Contains(t, optErr.Message, "all optimization attempts failed")
	assert.Equal(t, 1, optErr.Attempted)
	assert.Equal(t, 1, optErr.Completed)
}

func TestRunHeatmapKeepsFailedPairs(t *testing.T) {
	bars := map[string][]models.Bar{"AJWA.CA": steadyBars(12, 0.01)}
	store := newMemStore()
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(day(i), []models.PredictionRecord{{Ticker: "AJWA.CA", Predicted: 2.5}}))
	}

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA"}}, bars, store)
	rep, err := o.Run(context.Background(), []int{1, 3}, []int{1}, 30)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Best.TopK)
	assert.Equal(t, 1, rep.SuccessfulCount)
	assert.Equal(t, 2, rep.TotalAttempts)

	assert.Equal(t, []int{1, 3}, rep.TopKLabels)
	require.Len(t, rep.Heatmap, 2)
	assert.Greater(t, rep.Heatmap[0][0], 100.0)
	assert.Equal(t, 0.0, rep.Heatmap[1][0])
}

func TestRunBestTieKeepsFirstPair(t *testing.T) {
	// One ticker voted every day makes voting_days 1 and 2 produce the same
	// baskets and the same terminal equity; iteration order decides.
	bars := map[string][]models.Bar{"AJWA.CA": steadyBars(12, 0.01)}
	store := newMemStore()
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(day(i), []models.PredictionRecord{{Ticker: "AJWA.CA", Predicted: 2.5}}))
	}

	o := newTestOptimizer(&fakeSource{tickers: []string{"AJWA.CA"}}, bars, store)
	rep, err := o.Run(context.Background(), []int{1}, []int{1, 2}, 30)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.SuccessfulCount)
	assert.Equal(t, 1, rep.Best.VotingDays)
}

func TestTruncateDropsFutureBars(t *testing.T) {
	bars := steadyBars(10, 0.01)

	got := truncate(bars, day(6))
	require.Len(t, got, 6)
	assert.Equal(t, day(6), got[5].Date)

	assert.Len(t, truncate(bars, day(30)), 10)
	assert.Empty(t, truncate(bars, day(1).AddDate(0, 0, -1)))
}
