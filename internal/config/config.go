package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"egx-predictor/internal/universe"
)

// Config holds all application configuration. Values come from an optional
// YAML file, overridden by environment variables.
type Config struct {
	UniverseURL    string  `yaml:"universe_url"`
	MarketDataURL  string  `yaml:"market_data_url"`
	RequestTimeout int     `yaml:"request_timeout"` // seconds
	LookbackDays   int     `yaml:"lookback_days"`
	TopKMin        int     `yaml:"top_k_min"`
	TopKMax        int     `yaml:"top_k_max"`
	VotingMin      int     `yaml:"voting_days_min"`
	VotingMax      int     `yaml:"voting_days_max"`
	StartEquity    float64 `yaml:"start_equity"`
	PredictionsDir string  `yaml:"predictions_dir"`
	ExportsDir     string  `yaml:"exports_dir"`
	StoreBackend   string  `yaml:"store_backend"` // file or postgres
	LogLevel       string  `yaml:"log_level"`

	Database Database `yaml:"database"`
}

// Database holds the Postgres connection settings used when StoreBackend is
// "postgres".
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Load reads configuration from the YAML file at path (skipped when path is
// empty or the file is absent) and then applies environment overrides. A .env
// file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		UniverseURL:    universe.DefaultURL,
		MarketDataURL:  "https://api.egx-data.com",
		RequestTimeout: 30,
		LookbackDays:   800,
		TopKMin:        1,
		TopKMax:        10,
		VotingMin:      1,
		VotingMax:      10,
		StartEquity:    100,
		PredictionsDir: "data/predictions",
		ExportsDir:     "data/exports",
		StoreBackend:   "file",
		LogLevel:       "info",
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "predictions",
			SSLMode: "disable",
		},
	}
}

func (c *Config) applyEnv() {
	c.UniverseURL = getEnvWithDefault("UNIVERSE_URL", c.UniverseURL)
	c.MarketDataURL = getEnvWithDefault("MARKET_DATA_URL", c.MarketDataURL)
	c.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.LookbackDays = getEnvIntWithDefault("LOOKBACK_DAYS", c.LookbackDays)
	c.TopKMin = getEnvIntWithDefault("TOP_K_MIN", c.TopKMin)
	c.TopKMax = getEnvIntWithDefault("TOP_K_MAX", c.TopKMax)
	c.VotingMin = getEnvIntWithDefault("VOTING_DAYS_MIN", c.VotingMin)
	c.VotingMax = getEnvIntWithDefault("VOTING_DAYS_MAX", c.VotingMax)
	c.StartEquity = getEnvFloatWithDefault("START_EQUITY", c.StartEquity)
	c.PredictionsDir = getEnvWithDefault("PREDICTIONS_DIR", c.PredictionsDir)
	c.ExportsDir = getEnvWithDefault("EXPORTS_DIR", c.ExportsDir)
	c.StoreBackend = getEnvWithDefault("STORE_BACKEND", c.StoreBackend)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)

	c.Database.Host = getEnvWithDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvIntWithDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvWithDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvWithDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnvWithDefault("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", c.Database.SSLMode)
}

func (c *Config) validate() error {
	if c.StoreBackend != "file" && c.StoreBackend != "postgres" {
		return fmt.Errorf("unknown store backend %q, expected file or postgres", c.StoreBackend)
	}
	if c.TopKMin < 1 || c.TopKMax < c.TopKMin {
		return fmt.Errorf("invalid top_k range [%d, %d]", c.TopKMin, c.TopKMax)
	}
	if c.VotingMin < 1 || c.VotingMax < c.VotingMin {
		return fmt.Errorf("invalid voting_days range [%d, %d]", c.VotingMin, c.VotingMax)
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.LookbackDays)
	}
	if c.StartEquity <= 0 {
		return fmt.Errorf("start_equity must be positive, got %v", c.StartEquity)
	}
	return nil
}

// TopKRange expands the configured bounds into an inclusive value list.
func (c *Config) TopKRange() []int {
	return spanOf(c.TopKMin, c.TopKMax)
}

// VotingRange expands the configured bounds into an inclusive value list.
func (c *Config) VotingRange() []int {
	return spanOf(c.VotingMin, c.VotingMax)
}

func spanOf(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
