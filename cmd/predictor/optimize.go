package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"egx-predictor/internal/optimize"
	"egx-predictor/internal/report"
	"egx-predictor/models"
)

func optimizeCmd() *cobra.Command {
	var (
		lookback int
		export   bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sweep the (top_k, voting_days) grid and report the best pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)

			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			src, bars := newClients(cfg)
			params := report.LoadOptimParams(cfg.ExportsDir)
			opt := optimize.New(src, bars, st, params, cfg.StartEquity)

			days := lookback
			if days <= 0 {
				days = cfg.LookbackDays
			}

			rep, err := opt.Run(ctx, cfg.TopKRange(), cfg.VotingRange(), days)
			if err != nil {
				var optErr *models.OptError
				if errors.As(err, &optErr) && optErr.Suggestion != "" {
					log.Error().Str("suggestion", optErr.Suggestion).Msg(optErr.Error())
				}
				return err
			}

			fmt.Printf("Best parameters: top_k=%d voting_days=%d\n", rep.Best.TopK, rep.Best.VotingDays)
			fmt.Printf("Terminal equity: $%.2f (from $%.2f)\n", rep.Best.FinalEquity, cfg.StartEquity)
			fmt.Printf("Successful pairs: %d of %d attempted\n", rep.SuccessfulCount, rep.TotalAttempts)

			for _, r := range rep.Results {
				if r.TopK == rep.Best.TopK && r.VotingDays == rep.Best.VotingDays {
					m := report.Summarize(r.Curve)
					fmt.Printf("Return %.2f%%, max drawdown %.2f%%, Sharpe %.2f, win rate %.2f%% over %d days\n",
						m.TotalReturnPct, m.MaxDrawdownPct, m.SharpeRatio, m.WinRatePct, m.DaysTraded)
					break
				}
			}

			if export {
				name := fmt.Sprintf("optimization_%s.xlsx", time.Now().Format(models.DateKey))
				path := filepath.Join(cfg.ExportsDir, name)
				if err := report.ExportExcel(path, report.BuildReportSheets(rep)); err != nil {
					return fmt.Errorf("exporting report: %w", err)
				}
				log.Info().Str("path", path).Msg("Optimization report exported")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&lookback, "lookback", 0, "lookback window in days (0 uses config value)")
	cmd.Flags().BoolVar(&export, "export", false, "write the full report as an xlsx workbook")
	return cmd
}
