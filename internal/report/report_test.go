package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"egx-predictor/models"
)

func TestSummarize(t *testing.T) {
	curve := []models.EquityPoint{
		{Date: "2025-01-06", Equity: 100, DailyPct: 0},
		{Date: "2025-01-07", Equity: 110, DailyPct: 10},
		{Date: "2025-01-08", Equity: 99, DailyPct: -10},
		{Date: "2025-01-09", Equity: 108.9, DailyPct: 10},
	}

	m := Summarize(curve)
	assert.Equal(t, 8.9, m.TotalReturnPct)
	assert.Equal(t, -10.0, m.MaxDrawdownPct)
	assert.Equal(t, 50.0, m.WinRatePct)
	assert.Equal(t, 4, m.DaysTraded)
	assert.NotZero(t, m.SharpeRatio)
}

func TestSummarizeEmptyCurve(t *testing.T) {
	assert.Equal(t, Metrics{}, Summarize(nil))
}

func TestExpectedPercent(t *testing.T) {
	records := []models.PredictionRecord{
		{Ticker: "TMGH.CA", Predicted: 3.2},
		{Ticker: "INFI.CA", Predicted: 1.1},
	}

	got, ok := ExpectedPercent("tmgh.ca", records)
	require.True(t, ok)
	assert.Equal(t, 3.2, got)

	_, ok = ExpectedPercent("MISSING.CA", records)
	assert.False(t, ok)
}

func TestLoadOptimParamsDefaultsWhenAbsent(t *testing.T) {
	p := LoadOptimParams(t.TempDir())
	assert.Equal(t, 20, p.DefaultVol)
	assert.Equal(t, 20, p.DefaultPct)
	assert.Equal(t, 20, p.VolWindow("ANY.CA"))
	assert.Equal(t, "N/A", p.Source)
}

func TestLoadOptimParamsReadsNewestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "sma_optim_2024.csv")
	newer := filepath.Join(dir, "sma_optim_2025.csv")
	require.NoError(t, os.WriteFile(older, []byte("Ticker,Best_Vol_SMA,Best_Pct_SMA\nOLD.CA,5,5\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("Ticker,Best_Vol_SMA,Best_Pct_SMA\nTMGH.CA,10,30\nINFI.CA,14,26\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	p := LoadOptimParams(dir)
	assert.Equal(t, newer, p.Source)
	assert.Equal(t, 10, p.VolWindow("TMGH.CA"))
	assert.Equal(t, 30, p.PctWindow("TMGH.CA"))
	assert.Equal(t, 12, p.DefaultVol) // mean(10, 14)
	assert.Equal(t, 28, p.DefaultPct) // mean(30, 26)
	assert.Equal(t, 12, p.VolWindow("UNSEEN.CA"))
}

func TestLoadOptimParamsBadFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sma_optim_x.csv"), []byte("not,a,param\nfile,1,2\n"), 0o644))

	p := LoadOptimParams(dir)
	assert.Equal(t, 20, p.DefaultVol)
	assert.Empty(t, p.VolWindows)
}

func TestExportExcelTruncatesSheetNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	longName := "This_Sheet_Name_Is_Far_Too_Long_For_Any_Spreadsheet_Engine"

	err := ExportExcel(path, []Sheet{
		{Name: longName, Header: []string{"a"}, Rows: [][]interface{}{{1}}},
		{Name: "Second", Header: []string{"b"}, Rows: [][]interface{}{{2.5}}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, longName[:31], sheets[0])
	assert.Equal(t, "Second", sheets[1])
}

func TestBuildReportSheets(t *testing.T) {
	rep := &models.OptReport{
		Best: models.BestParams{TopK: 2, VotingDays: 3, FinalEquity: 123.45},
		Results: []models.GridResult{
			{TopK: 2, VotingDays: 3, FinalEquity: 123.45, Curve: []models.EquityPoint{
				{Date: "2025-01-06", Equity: 100, DailyPct: 0, Holdings: []models.Holding{{Ticker: "A", Value: 50}, {Ticker: "B", Value: 50}}},
				{Date: "2025-01-07", Equity: 123.45, DailyPct: 23.45},
			}},
			{TopK: 1, VotingDays: 3, FinalEquity: 90},
		},
		Heatmap:          [][]float64{{90}, {123.45}},
		TopKLabels:       []int{1, 2},
		VotingDaysLabels: []int{3},
	}

	sheets := BuildReportSheets(rep)
	require.Len(t, sheets, 5)
	assert.Equal(t, "Best_Params", sheets[0].Name)
	assert.Equal(t, "All_Results", sheets[1].Name)
	assert.Equal(t, "Heatmap", sheets[2].Name)
	assert.Equal(t, "Best_Equity_Curve", sheets[3].Name)
	assert.Equal(t, "Best_Metrics", sheets[4].Name)

	assert.Len(t, sheets[1].Rows, 2)
	assert.Len(t, sheets[2].Rows, 2)
	assert.Len(t, sheets[3].Rows, 2)
}
