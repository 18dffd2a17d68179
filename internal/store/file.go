// Package store persists one ranked prediction list per calendar date behind
// a narrow interface, so the backend (flat JSON files or Postgres) is
// swappable without touching the core pipeline.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"egx-predictor/models"
)

const fileExt = ".json"

var _ models.PredictionStore = (*FileStore)(nil)

// FileStore keeps one JSON file per date, named YYYY-MM-DD.json, inside a
// single directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		dir:    dir,
		logger: log.With().Str("component", "prediction_store").Logger(),
	}, nil
}

func (s *FileStore) path(date time.Time) string {
	return filepath.Join(s.dir, date.Format(models.DateKey)+fileExt)
}

// Put writes the ranked records for a date, replacing any existing file.
func (s *FileStore) Put(date time.Time, records []models.PredictionRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(date), data, 0o644); err != nil {
		return err
	}
	s.logger.Info().Str("date", date.Format(models.DateKey)).Int("count", len(records)).Msg("Saved predictions")
	return nil
}

// Get loads the records for a date. A missing or unreadable file is reported
// as absent, never as an error.
func (s *FileStore) Get(date time.Time) ([]models.PredictionRecord, bool) {
	data, err := os.ReadFile(s.path(date))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("date", date.Format(models.DateKey)).Msg("Error reading prediction file")
		} else {
			s.logger.Warn().Str("date", date.Format(models.DateKey)).Msg("Prediction file not found")
		}
		return nil, false
	}

	var records []models.PredictionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Error().Err(err).Str("date", date.Format(models.DateKey)).Msg("Error parsing prediction file")
		return nil, false
	}
	return records, true
}

// Has reports whether a file exists for the date.
func (s *FileStore) Has(date time.Time) bool {
	_, err := os.Stat(s.path(date))
	return err == nil
}

// Count returns the number of persisted dates.
func (s *FileStore) Count() int {
	return len(s.dates())
}

// Latest returns the most recent persisted date.
func (s *FileStore) Latest() (time.Time, bool) {
	dates := s.dates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

func (s *FileStore) dates() []time.Time {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Str("dir", s.dir).Msg("Error listing prediction files")
		return nil
	}
	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		d, err := time.ParseInLocation(models.DateKey, strings.TrimSuffix(name, fileExt), time.UTC)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
