package store

import (
	"os"
	"path/filepath"
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

func TestFileStoreRoundtrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	records := []models.PredictionRecord{
		{Ticker: "TMGH.CA", Predicted: 3.21},
		{Ticker: "INFI.CA", Predicted: 1.05},
		{Ticker: "OLFI.CA", Predicted: -0.4},
	}
	d := day("2025-03-10")
	require.NoError(t, s.Put(d, records))

	got, ok := s.Get(d)
	require.True(t, ok)
	// Stored rank order must survive the roundtrip.
	assert.Equal(t, records, got)
	assert.True(t, s.Has(d))
	assert.Equal(t, 1, s.Count())
}

func TestFileStoreMissingDateIsAbsent(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Get(day("2025-03-11"))
	assert.False(t, ok)
	assert.False(t, s.Has(day("2025-03-11")))
	assert.Equal(t, 0, s.Count())
}

func TestFileStoreCorruptFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-03-12.json"), []byte("{not json"), 0o644))

	_, ok := s.Get(day("2025-03-12"))
	assert.False(t, ok)
}

func TestFileStoreLatest(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Latest()
	assert.False(t, ok)

	require.NoError(t, s.Put(day("2025-03-10"), []models.PredictionRecord{{Ticker: "A", Predicted: 1}}))
	require.NoError(t, s.Put(day("2025-03-14"), []models.PredictionRecord{{Ticker: "A", Predicted: 1}}))
	require.NoError(t, s.Put(day("2025-03-12"), []models.PredictionRecord{{Ticker: "A", Predicted: 1}}))

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, day("2025-03-14"), latest)
	assert.Equal(t, 3, s.Count())
}

func TestFileStoreOverwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	d := day("2025-03-10")
	require.NoError(t, s.Put(d, []models.PredictionRecord{{Ticker: "A", Predicted: 1}}))
	require.NoError(t, s.Put(d, []models.PredictionRecord{{Ticker: "B", Predicted: 2}}))

	got, ok := s.Get(d)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Ticker)
	assert.Equal(t, 1, s.Count())
}
