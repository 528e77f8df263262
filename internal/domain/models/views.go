package models

import "time"

// Period is a named calendar-day lookback.
type Period struct {
	Label string `json:"label"`
	Days  int    `json:"days"`
}

// DefaultPeriods is the ordered period set used by the returns table.
var DefaultPeriods = []Period{
	{Label: "1D", Days: 1},
	{Label: "3D", Days: 3},
	{Label: "5D", Days: 5},
	{Label: "30D", Days: 30},
	{Label: "1Y", Days: 365},
}

// ReturnsRow holds percent returns per period label. A label without an
// entry had fewer than two observations in its window.
type ReturnsRow struct {
	Symbol    string             `json:"symbol"`
	Benchmark bool               `json:"benchmark,omitempty"`
	Returns   map[string]float64 `json:"returns"`
}

// Return looks up the return for a period label.
func (r ReturnsRow) Return(label string) (float64, bool) {
	v, ok := r.Returns[label]
	return v, ok
}

// ReturnsTable is the per-symbol multi-period return view. The benchmark
// row, when present, is first; the rest are ordered by 1D descending.
type ReturnsTable struct {
	AsOf    time.Time    `json:"as_of"`
	Periods []Period     `json:"periods"`
	Rows    []ReturnsRow `json:"rows"`
}

// SMAWindows are the moving-average lengths used by the breadth view.
var SMAWindows = []int{20, 50, 200}

// BreadthPoint is the share of symbols above each SMA on one date. Pct[i]
// and Counted[i] refer to Windows[i] of the enclosing series; a nil Pct
// means no symbol had enough history.
type BreadthPoint struct {
	Date    time.Time  `json:"date"`
	Pct     []*float64 `json:"pct"`
	Counted []int      `json:"counted"`
}

// BreadthSeries is the market-breadth time series.
type BreadthSeries struct {
	Start   time.Time      `json:"start"`
	Windows []int          `json:"windows"`
	Points  []BreadthPoint `json:"points"`
}

// SeasonalPoint aggregates one trading-day-of-year ordinal across years.
type SeasonalPoint struct {
	Ordinal      int      `json:"ordinal"`
	Observations int      `json:"observations"`
	Mean         float64  `json:"mean"`
	StdDev       *float64 `json:"std_dev"`
	Cumulative   float64  `json:"cumulative"`
	Upper        *float64 `json:"upper"`
	Lower        *float64 `json:"lower"`
}

// YearPoint is the compounded return of a single year at an ordinal.
type YearPoint struct {
	Ordinal    int       `json:"ordinal"`
	Date       time.Time `json:"date"`
	Cumulative float64   `json:"cumulative"`
}

// HalfMonthStat is the t-test summary for one half-month bucket.
type HalfMonthStat struct {
	Label       string     `json:"label"`
	Month       time.Month `json:"month"`
	Half        int        `json:"half"`
	N           int        `json:"n"`
	Mean        *float64   `json:"mean"`
	TStat       *float64   `json:"t_stat"`
	PValue      *float64   `json:"p_value"`
	AdjustedP   *float64   `json:"adjusted_p"`
	Significant bool       `json:"significant"`
}

// SeasonalCurve is the seasonality view of a single symbol.
type SeasonalCurve struct {
	Symbol      string          `json:"symbol"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Years       int             `json:"years"`
	Points      []SeasonalPoint `json:"points"`
	CurrentYear int             `json:"current_year"`
	Current     []YearPoint     `json:"current"`
	HalfMonths  []HalfMonthStat `json:"half_months"`
}

// Holding is one constituent of an ETF.
type Holding struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// F64 returns a pointer to v, used for optional numeric cells.
func F64(v float64) *float64 { return &v }
