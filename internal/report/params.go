package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// DefaultSMAWindow is used for both the volume and return SMA windows when no
// optimization file is available for a ticker.
const DefaultSMAWindow = 20

// OptimParams holds previously optimized per-ticker SMA windows plus the
// defaults to use for tickers not present in the file.
type OptimParams struct {
	VolWindows map[string]int
	PctWindows map[string]int
	DefaultVol int
	DefaultPct int
	Source     string
}

// VolWindow returns the ticker's optimized volume SMA window or the default.
func (p *OptimParams) VolWindow(ticker string) int {
	if w, ok := p.VolWindows[ticker]; ok {
		return w
	}
	return p.DefaultVol
}

// PctWindow returns the ticker's optimized return SMA window or the default.
func (p *OptimParams) PctWindow(ticker string) int {
	if w, ok := p.PctWindows[ticker]; ok {
		return w
	}
	return p.DefaultPct
}

// LoadOptimParams reads the most recent sma_optim_*.csv in dir. The file has
// Ticker, Best_Vol_SMA and Best_Pct_SMA columns; the defaults become the
// rounded column means. A missing or unreadable file yields empty maps with
// 20/20 defaults, logged but never fatal.
func LoadOptimParams(dir string) *OptimParams {
	logger := log.With().Str("component", "optim_params").Logger()

	fallback := &OptimParams{
		VolWindows: map[string]int{},
		PctWindows: map[string]int{},
		DefaultVol: DefaultSMAWindow,
		DefaultPct: DefaultSMAWindow,
		Source:     "N/A",
	}

	matches, err := filepath.Glob(filepath.Join(dir, "sma_optim_*.csv"))
	if err != nil || len(matches) == 0 {
		logger.Warn().Str("dir", dir).Msg("No optimization file found, using defaults (20, 20)")
		return fallback
	}

	newest := matches[0]
	newestMod := int64(0)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newest = m
			newestMod = mod
		}
	}

	f, err := os.Open(newest)
	if err != nil {
		logger.Error().Err(err).Str("file", newest).Msg("Error opening optimization file")
		return fallback
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) < 2 {
		logger.Error().Err(err).Str("file", newest).Msg("Error reading optimization file")
		return fallback
	}

	tickerIdx, volIdx, pctIdx := -1, -1, -1
	for i, name := range rows[0] {
		switch name {
		case "Ticker":
			tickerIdx = i
		case "Best_Vol_SMA":
			volIdx = i
		case "Best_Pct_SMA":
			pctIdx = i
		}
	}
	if tickerIdx < 0 || volIdx < 0 || pctIdx < 0 {
		logger.Error().Str("file", newest).Msg("Optimization file missing required columns")
		return fallback
	}

	params := &OptimParams{
		VolWindows: make(map[string]int),
		PctWindows: make(map[string]int),
		Source:     newest,
	}
	volSum, pctSum, n := 0.0, 0.0, 0
	for _, row := range rows[1:] {
		vol, errV := strconv.Atoi(row[volIdx])
		pct, errP := strconv.Atoi(row[pctIdx])
		if errV != nil || errP != nil {
			continue
		}
		params.VolWindows[row[tickerIdx]] = vol
		params.PctWindows[row[tickerIdx]] = pct
		volSum += float64(vol)
		pctSum += float64(pct)
		n++
	}
	if n == 0 {
		logger.Warn().Str("file", newest).Msg("Optimization file has no usable rows, using defaults (20, 20)")
		return fallback
	}

	params.DefaultVol = int(math.Round(volSum / float64(n)))
	params.DefaultPct = int(math.Round(pctSum / float64(n)))

	logger.Info().Str("file", newest).Int("tickers", n).Msg("Loaded optimization parameters")
	return params
}
