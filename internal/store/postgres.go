package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"egx-predictor/models"
)

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

var _ models.PredictionStore = (*PostgresStore)(nil)

// PostgresStore persists prediction lists in a single table keyed by
// (date, rank). Rank preserves the descending-by-prediction order the
// records were ranked in before persistence.
type PostgresStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresStore opens the connection and ensures the schema exists.
func NewPostgresStore(params ConnectionParams) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			date DATE NOT NULL,
			rank INT NOT NULL,
			ticker TEXT NOT NULL,
			predicted DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (date, rank)
		)
	`); err != nil {
		return nil, err
	}

	return &PostgresStore{
		db:     db,
		logger: log.With().Str("component", "prediction_store").Str("backend", "postgres").Logger(),
	}, nil
}

// Put replaces the stored records for a date in one transaction.
func (s *PostgresStore) Put(date time.Time, records []models.PredictionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	day := date.Format(models.DateKey)
	if _, err := tx.Exec(`DELETE FROM predictions WHERE date = $1`, day); err != nil {
		return err
	}
	for i, rec := range records {
		if _, err := tx.Exec(`
			INSERT INTO predictions (date, rank, ticker, predicted)
			VALUES ($1, $2, $3, $4)
		`, day, i, rec.Ticker, rec.Predicted); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info().Str("date", day).Int("count", len(records)).Msg("Saved predictions")
	return nil
}

// Get loads the records for a date in stored rank order. Absence and read
// failures both report absent; failures are logged.
func (s *PostgresStore) Get(date time.Time) ([]models.PredictionRecord, bool) {
	rows, err := s.db.Query(`
		SELECT ticker, predicted FROM predictions
		WHERE date = $1
		ORDER BY rank
	`, date.Format(models.DateKey))
	if err != nil {
		s.logger.Error().Err(err).Str("date", date.Format(models.DateKey)).Msg("Error loading predictions")
		return nil, false
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var rec models.PredictionRecord
		if err := rows.Scan(&rec.Ticker, &rec.Predicted); err != nil {
			s.logger.Error().Err(err).Msg("Error scanning prediction row")
			return nil, false
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Error iterating prediction rows")
		return nil, false
	}
	if len(records) == 0 {
		s.logger.Warn().Str("date", date.Format(models.DateKey)).Msg("No predictions stored for date")
		return nil, false
	}
	return records, true
}

// Has reports whether any records exist for the date.
func (s *PostgresStore) Has(date time.Time) bool {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM predictions WHERE date = $1)
	`, date.Format(models.DateKey)).Scan(&exists)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error checking prediction date")
		return false
	}
	return exists
}

// Count returns the number of distinct persisted dates.
func (s *PostgresStore) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT date) FROM predictions`).Scan(&n); err != nil {
		s.logger.Error().Err(err).Msg("Error counting prediction dates")
		return 0
	}
	return n
}

// Latest returns the most recent persisted date.
func (s *PostgresStore) Latest() (time.Time, bool) {
	var day sql.NullString
	err := s.db.QueryRow(`SELECT TO_CHAR(MAX(date), 'YYYY-MM-DD') FROM predictions`).Scan(&day)
	if err != nil || !day.Valid {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(models.DateKey, day.String, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
