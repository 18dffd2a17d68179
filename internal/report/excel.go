package report

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"egx-predictor/models"
)

// maxSheetNameLen is the spreadsheet-engine limit on sheet names.
const maxSheetNameLen = 31

// Sheet is one named table destined for the workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// ExportExcel writes the sheets, in order, to a single xlsx workbook. Sheet
// names are truncated to the engine limit.
func ExportExcel(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		name := sheet.Name
		if len(name) > maxSheetNameLen {
			name = name[:maxSheetNameLen]
		}

		if i == 0 {
			// Rename the default sheet rather than leaving it empty.
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("renaming sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}

		if err := writeRow(f, name, 1, toInterfaces(sheet.Header)); err != nil {
			return err
		}
		for r, row := range sheet.Rows {
			if err := writeRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}

	log.Info().Str("component", "report").Str("path", path).Int("sheets", len(sheets)).Msg("Saved Excel report")
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell := "A" + strconv.Itoa(row)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d of %q: %w", row, sheet, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// BuildReportSheets turns an optimization report into exportable sheets:
// best parameters, every attempted pair, the terminal-equity heatmap, the
// best pair's equity curve and its summary metrics.
func BuildReportSheets(rep *models.OptReport) []Sheet {
	sheets := []Sheet{
		{
			Name:   "Best_Params",
			Header: []string{"top_k", "voting_days", "final_equity"},
			Rows: [][]interface{}{
				{rep.Best.TopK, rep.Best.VotingDays, rep.Best.FinalEquity},
			},
		},
	}

	results := Sheet{
		Name:   "All_Results",
		Header: []string{"top_k", "voting_days", "final_equity", "days_simulated"},
	}
	for _, r := range rep.Results {
		results.Rows = append(results.Rows, []interface{}{r.TopK, r.VotingDays, r.FinalEquity, len(r.Curve)})
	}
	sheets = append(sheets, results)

	heatmap := Sheet{Name: "Heatmap", Header: []string{"top_k"}}
	for _, v := range rep.VotingDaysLabels {
		heatmap.Header = append(heatmap.Header, fmt.Sprintf("voting_%d", v))
	}
	for i, k := range rep.TopKLabels {
		row := []interface{}{k}
		for j := range rep.VotingDaysLabels {
			row = append(row, rep.Heatmap[i][j])
		}
		heatmap.Rows = append(heatmap.Rows, row)
	}
	sheets = append(sheets, heatmap)

	for _, r := range rep.Results {
		if r.TopK != rep.Best.TopK || r.VotingDays != rep.Best.VotingDays {
			continue
		}
		curve := Sheet{
			Name:   "Best_Equity_Curve",
			Header: []string{"date", "equity", "daily_pct", "holdings"},
		}
		for _, p := range r.Curve {
			holdings := ""
			for i, h := range p.Holdings {
				if i > 0 {
					holdings += ", "
				}
				holdings += fmt.Sprintf("%s=%.2f", h.Ticker, h.Value)
			}
			curve.Rows = append(curve.Rows, []interface{}{p.Date, p.Equity, p.DailyPct, holdings})
		}

		m := Summarize(r.Curve)
		metrics := Sheet{
			Name:   "Best_Metrics",
			Header: []string{"total_return_pct", "max_drawdown_pct", "sharpe_ratio", "win_rate_pct", "days_traded"},
			Rows: [][]interface{}{
				{m.TotalReturnPct, m.MaxDrawdownPct, m.SharpeRatio, m.WinRatePct, m.DaysTraded},
			},
		}
		sheets = append(sheets, curve, metrics)
		break
	}

	return sheets
}
