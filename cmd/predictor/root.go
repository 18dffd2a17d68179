package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"egx-predictor/internal/api/marketdata"
	"egx-predictor/internal/config"
	"egx-predictor/internal/store"
	"egx-predictor/internal/universe"
	"egx-predictor/models"
)

func Execute(ctx context.Context) error {
	var configPath string

	root := &cobra.Command{
		Use:   "predictor",
		Short: "EGX basket prediction and backtest optimization",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to YAML config file")

	root.AddCommand(predictCmd())
	root.AddCommand(optimizeCmd())
	root.AddCommand(exportCmd())
	return root.ExecuteContext(ctx)
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) *config.Config {
	return ctx.Value(configKey{}).(*config.Config)
}

// openStore picks the persistence backend from config. The caller must
// invoke the returned closer.
func openStore(cfg *config.Config) (models.PredictionStore, func(), error) {
	if cfg.StoreBackend == "postgres" {
		pg, err := store.NewPostgresStore(store.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     strconv.Itoa(cfg.Database.Port),
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing store")
			}
		}, nil
	}

	fs, err := store.NewFileStore(cfg.PredictionsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file store: %w", err)
	}
	return fs, func() {}, nil
}

func newClients(cfg *config.Config) (*universe.Client, *marketdata.Client) {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	return universe.NewClient(cfg.UniverseURL, timeout), marketdata.NewClient(cfg.MarketDataURL, timeout)
}
