package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"egx-predictor/internal/report"
	"egx-predictor/models"
)

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the latest stored prediction list as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())

			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			date, ok := st.Latest()
			if !ok {
				return fmt.Errorf("no stored predictions to export")
			}
			records, _ := st.Get(date)

			rows := make([][]interface{}, 0, len(records))
			for i, rec := range records {
				rows = append(rows, []interface{}{i + 1, rec.Ticker, rec.Predicted})
			}

			path := out
			if path == "" {
				path = filepath.Join(cfg.ExportsDir, fmt.Sprintf("predictions_%s.xlsx", date.Format(models.DateKey)))
			}

			sheets := []report.Sheet{{
				Name:   "Predictions_" + date.Format(models.DateKey),
				Header: []string{"Rank", "Ticker", "Predicted_%"},
				Rows:   rows,
			}}
			if err := report.ExportExcel(path, sheets); err != nil {
				return fmt.Errorf("exporting predictions: %w", err)
			}

			log.Info().Str("path", path).Int("records", len(records)).Msg("Predictions exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (defaults to the exports directory)")
	return cmd
}
