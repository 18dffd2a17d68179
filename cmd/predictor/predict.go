package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"egx-predictor/internal/predict"
	"egx-predictor/internal/report"
	"egx-predictor/models"
)

func predictCmd() *cobra.Command {
	var (
		top    int
		ticker string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Generate and store the ranked prediction list for yesterday",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)

			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			// Single-ticker lookup against the latest stored list.
			if ticker != "" {
				date, ok := st.Latest()
				if !ok {
					return fmt.Errorf("no stored predictions to look up %s in", ticker)
				}
				records, _ := st.Get(date)
				pct, found := report.ExpectedPercent(ticker, records)
				if !found {
					return fmt.Errorf("%s not present in predictions for %s", ticker, date.Format(models.DateKey))
				}
				fmt.Printf("%s expected over the next window (%s): %+.2f%%\n", ticker, date.Format(models.DateKey), pct)
				return nil
			}

			src, bars := newClients(cfg)
			tickers, err := src.Tickers(ctx)
			if err != nil {
				return fmt.Errorf("resolving universe: %w", err)
			}

			asOf := models.NormalizeDate(time.Now().AddDate(0, 0, -1))
			start := asOf.AddDate(0, 0, -cfg.LookbackDays)

			log.Info().Int("tickers", len(tickers)).Str("as_of", asOf.Format(models.DateKey)).Msg("Downloading history")
			history, err := bars.DownloadAll(ctx, tickers, start, asOf)
			if err != nil {
				return fmt.Errorf("downloading bars: %w", err)
			}

			params := report.LoadOptimParams(cfg.ExportsDir)
			predictor := predict.New()

			var records []models.PredictionRecord
			for _, t := range tickers {
				rec, ok := predictor.ProcessTicker(t, history[t], params.VolWindow(t), params.PctWindow(t))
				if ok {
					records = append(records, rec)
				}
			}
			if len(records) == 0 {
				return fmt.Errorf("no ticker produced a prediction, try a longer lookback")
			}

			sort.SliceStable(records, func(i, j int) bool { return records[i].Predicted > records[j].Predicted })
			if err := st.Put(asOf, records); err != nil {
				return fmt.Errorf("saving predictions: %w", err)
			}
			log.Info().Int("count", len(records)).Str("date", asOf.Format(models.DateKey)).Msg("Predictions stored")

			n := top
			if n > len(records) {
				n = len(records)
			}
			fmt.Printf("Top %d predictions for %s:\n", n, asOf.Format(models.DateKey))
			for i, rec := range records[:n] {
				fmt.Printf("%2d. %-10s %+.2f%%\n", i+1, rec.Ticker, rec.Predicted)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of ranked predictions to print")
	cmd.Flags().StringVar(&ticker, "ticker", "", "print the stored expectation for one ticker instead of predicting")
	return cmd
}
