// Package features builds the lagged technical-indicator table that feeds the
// per-ticker regression model. Every market-derived column at row date D is
// computed purely from bars dated strictly before D; only the calendar columns
// (DoW, MonthEnd, Date_Ord) come from the row's own date.
package features

import (
	"math"
	"time"

	"egx-predictor/models"
)

// TargetColumn is the moving-average-of-returns column the model predicts.
const TargetColumn = "Pct_SMA"

const rsiPeriod = 9
const atrPeriod = 5
const rsiMomentumWindow = 3

// Table is a columnar feature frame: one float64 column per name, one row per
// surviving date. All columns have equal length.
type Table struct {
	Dates []time.Time
	Names []string
	Cols  [][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Dates) }

// Column returns the named column, or nil if it does not exist.
func (t *Table) Column(name string) []float64 {
	for i, n := range t.Names {
		if n == name {
			return t.Cols[i]
		}
	}
	return nil
}

// Target returns the Pct_SMA column.
func (t *Table) Target() []float64 { return t.Column(TargetColumn) }

// FeatureNames returns all column names except the target, in table order.
func (t *Table) FeatureNames() []string {
	names := make([]string, 0, len(t.Names)-1)
	for _, n := range t.Names {
		if n != TargetColumn {
			names = append(names, n)
		}
	}
	return names
}

// Row assembles row i of the feature columns (target excluded).
func (t *Table) Row(i int) []float64 {
	row := make([]float64, 0, len(t.Names)-1)
	for j, n := range t.Names {
		if n != TargetColumn {
			row = append(row, t.Cols[j][i])
		}
	}
	return row
}

// Matrix assembles all feature rows (target excluded) in date order.
func (t *Table) Matrix() [][]float64 {
	rows := make([][]float64, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Build constructs the feature table from a bar series. volWindow sizes the
// volume SMA, pctWindow sizes the return SMA that becomes the target. Rows
// consumed by lagging, rolling warm-up or undefined values are dropped.
func Build(bars []models.Bar, volWindow, pctWindow int) *Table {
	n := len(bars)

	// Shift every input column forward one session so row i only sees data
	// known at the close of the previous bar.
	lagOpen := lagged(bars, func(b models.Bar) float64 { return b.Open })
	lagHigh := lagged(bars, func(b models.Bar) float64 { return b.High })
	lagLow := lagged(bars, func(b models.Bar) float64 { return b.Low })
	lagClose := lagged(bars, func(b models.Bar) float64 { return b.Close })
	lagVolume := lagged(bars, func(b models.Bar) float64 { return float64(b.Volume) })

	logRet := make([]float64, n)
	for i := range logRet {
		if i == 0 || math.IsNaN(lagClose[i]) || math.IsNaN(lagClose[i-1]) {
			logRet[i] = math.NaN()
			continue
		}
		logRet[i] = (math.Log(lagClose[i]) - math.Log(lagClose[i-1])) * 100
	}

	volSMA := rollingMean(lagVolume, volWindow)
	pctSMA := rollingMean(logRet, pctWindow)

	vpChange := make([]float64, n)
	for i := range vpChange {
		if i == 0 || math.IsNaN(volSMA[i]) || math.IsNaN(lagClose[i]) || math.IsNaN(lagClose[i-1]) {
			vpChange[i] = math.NaN()
			continue
		}
		vpChange[i] = volSMA[i] * (lagClose[i] - lagClose[i-1])
	}

	rsiClose := RSI(lagClose, rsiPeriod)
	rsiVP := RSI(vpChange, rsiPeriod)
	dRSIClose := subtract(rsiClose, rollingMean(rsiClose, rsiMomentumWindow))
	dRSIVP := subtract(rsiVP, rollingMean(rsiVP, rsiMomentumWindow))

	candle := make([]float64, n)
	for i := range candle {
		candle[i] = math.Abs(lagOpen[i]-lagClose[i]) / math.Abs(lagHigh[i]-lagLow[i])
	}

	tr := make([]float64, n)
	for i := range tr {
		tr[i] = lagHigh[i] - lagLow[i]
	}
	atr := rollingMean(tr, atrPeriod)

	dow := make([]float64, n)
	monthEnd := make([]float64, n)
	dateOrd := make([]float64, n)
	for i, b := range bars {
		dow[i] = float64(models.DayOfWeek(b.Date))
		if models.IsMonthEnd(b.Date) {
			monthEnd[i] = 1
		}
		dateOrd[i] = float64(models.Ordinal(b.Date))
	}

	names := []string{
		"LogRet", "Vol_SMA", TargetColumn, "VP_Change",
		"RSI_9_Close", "RSI_9_VPChange", "d_RSI_9_Close", "d_RSI_9_VPChange",
		"Candle_Strength", "ATR5", "DoW", "MonthEnd", "Date_Ord",
	}
	cols := [][]float64{
		logRet, volSMA, pctSMA, vpChange,
		rsiClose, rsiVP, dRSIClose, dRSIVP,
		candle, atr, dow, monthEnd, dateOrd,
	}

	return dropInvalid(bars, names, cols)
}

// dropInvalid normalizes ±Inf to missing and removes every row that still
// contains a missing value in any column.
func dropInvalid(bars []models.Bar, names []string, cols [][]float64) *Table {
	n := len(bars)
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		valid := true
		for _, c := range cols {
			if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
				valid = false
				break
			}
		}
		if valid {
			keep = append(keep, i)
		}
	}

	out := &Table{
		Dates: make([]time.Time, len(keep)),
		Names: names,
		Cols:  make([][]float64, len(cols)),
	}
	for j := range cols {
		out.Cols[j] = make([]float64, len(keep))
	}
	for k, i := range keep {
		out.Dates[k] = bars[i].Date
		for j := range cols {
			out.Cols[j][k] = cols[j][i]
		}
	}
	return out
}

// RSI computes the Relative Strength Index over an exponentially weighted
// mean of gains and losses (smoothing factor 1/period, no bias correction).
// A zero loss average yields a missing value rather than infinity.
func RSI(series []float64, period int) []float64 {
	n := len(series)
	delta := make([]float64, n)
	for i := range delta {
		if i == 0 || math.IsNaN(series[i]) || math.IsNaN(series[i-1]) {
			delta[i] = math.NaN()
			continue
		}
		delta[i] = series[i] - series[i-1]
	}

	gain := make([]float64, n)
	loss := make([]float64, n)
	for i, d := range delta {
		if math.IsNaN(d) {
			gain[i] = math.NaN()
			loss[i] = math.NaN()
			continue
		}
		if d > 0 {
			gain[i] = d
		} else {
			loss[i] = -d
		}
	}

	avgGain := ewm(gain, 1/float64(period))
	avgLoss := ewm(loss, 1/float64(period))

	rsi := make([]float64, n)
	for i := range rsi {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l) || l == 0:
			rsi[i] = math.NaN()
		default:
			rsi[i] = 100 - 100/(1+g/l)
		}
	}
	return rsi
}

// ewm is an exponentially weighted mean seeded at the first finite value.
// Leading missing values stay missing; a later missing input produces a
// missing output without disturbing the running state.
func ewm(series []float64, alpha float64) []float64 {
	out := make([]float64, len(series))
	state := math.NaN()
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if math.IsNaN(state) {
			state = v
		} else {
			state = (1-alpha)*state + alpha*v
		}
		out[i] = state
	}
	return out
}

// rollingMean is a simple moving average requiring a full window of finite
// values; anything else is missing.
func rollingMean(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(series[j]) || math.IsInf(series[j], 0) {
				valid = false
				break
			}
			sum += series[j]
		}
		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] - b[i]
	}
	return out
}

func lagged(bars []models.Bar, field func(models.Bar) float64) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = field(bars[i-1])
	}
	return out
}
