package models

import "time"

// SimilarityRow ranks one symbol against the target.
type SimilarityRow struct {
	Symbol      string   `json:"symbol"`
	Correlation float64  `json:"correlation"`
	LatestBeta  *float64 `json:"latest_beta"`
	MeanBeta    *float64 `json:"mean_beta"`
	BetaStd     *float64 `json:"beta_std"`
}

// RollingSeries is a dated rolling statistic of one symbol.
type RollingSeries struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

// SimilarityResult is the rolling-correlation ranking of a universe
// against a target, with betas versus a market symbol. Correlations and
// Betas hold the full rolling series of the ranked symbols, in row order.
type SimilarityResult struct {
	Target       string          `json:"target"`
	Market       string          `json:"market"`
	Window       int             `json:"window"`
	AsOf         time.Time       `json:"as_of"`
	Rows         []SimilarityRow `json:"rows"`
	Correlations []RollingSeries `json:"correlations"`
	Betas        []RollingSeries `json:"betas"`
}

// FactorExposure summarises a symbol's sensitivity to one factor ETF.
type FactorExposure struct {
	Factor      string   `json:"factor"`
	Correlation *float64 `json:"correlation"`
	Beta        *float64 `json:"beta"`
	MeanBeta    *float64 `json:"mean_beta"`
	BetaStd     *float64 `json:"beta_std"`
	BetaZ       *float64 `json:"beta_z"`
	Sharpe      *float64 `json:"sharpe"`
}

// FactorResult is the factor-exposure view.
type FactorResult struct {
	Symbol string           `json:"symbol"`
	Window int              `json:"window"`
	AsOf   time.Time        `json:"as_of"`
	Rows   []FactorExposure `json:"rows"`
}

// DominanceRow is one symbol's share of volume-weighted range.
type DominanceRow struct {
	Symbol     string  `json:"symbol"`
	Score      float64 `json:"score"`
	Share      float64 `json:"share"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// DominanceResult is the polar dominance view.
type DominanceResult struct {
	From  time.Time      `json:"from"`
	To    time.Time      `json:"to"`
	Total float64        `json:"total"`
	Rows  []DominanceRow `json:"rows"`
}

// ComplacencyPoint is one day of the VVIX/VIX ratio with its band.
type ComplacencyPoint struct {
	Date  time.Time `json:"date"`
	Ratio float64   `json:"ratio"`
	SMA   *float64  `json:"sma"`
	Upper *float64  `json:"upper"`
	Lower *float64  `json:"lower"`
	SPX   *float64  `json:"spx"`
}

// ComplacencyResult is the complacency view; Breaks are the dates the ratio
// crossed below its lower band.
type ComplacencyResult struct {
	Window     int                `json:"window"`
	Multiplier float64            `json:"multiplier"`
	Points     []ComplacencyPoint `json:"points"`
	Breaks     []time.Time        `json:"breaks"`
}

// RotationPoint places a symbol on the momentum/relative-strength plane.
type RotationPoint struct {
	Date             time.Time `json:"date"`
	Symbol           string    `json:"symbol"`
	Momentum         float64   `json:"momentum"`
	RelativeStrength float64   `json:"relative_strength"`
}

// RotationResult is the sector rotation view.
type RotationResult struct {
	Benchmark    string          `json:"benchmark"`
	MomentumDays int             `json:"momentum_days"`
	StrengthDays int             `json:"strength_days"`
	Points       []RotationPoint `json:"points"`
	Latest       []RotationPoint `json:"latest"`
	TopMover     string          `json:"top_mover"`
}

// ExtremeMove is one outsized daily move with its surrounding returns.
type ExtremeMove struct {
	Date    time.Time `json:"date"`
	Prev3D  float64   `json:"prev_3d"`
	Prev1D  float64   `json:"prev_1d"`
	Day     float64   `json:"day"`
	Next1D  *float64  `json:"next_1d"`
	Next3D  *float64  `json:"next_3d"`
	Next5D  *float64  `json:"next_5d"`
	Next21D *float64  `json:"next_21d"`
}

// MovesResult is the extreme-moves view.
type MovesResult struct {
	Symbol    string        `json:"symbol"`
	Direction string        `json:"direction"`
	Moves     []ExtremeMove `json:"moves"`
}

// OverlayMatch is a historical window resembling the reference window.
type OverlayMatch struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Correlation float64   `json:"correlation"`
	Path        []float64 `json:"path"`
}

// OverlayResult is the historical overlay view. Paths are rebased to 100.
type OverlayResult struct {
	Symbol    string         `json:"symbol"`
	Window    int            `json:"window"`
	Threshold float64        `json:"threshold"`
	Reference []float64      `json:"reference"`
	Matches   []OverlayMatch `json:"matches"`
}

// Performance is one symbol's percent change over a window.
type Performance struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change_pct"`
}

// PerformanceWindow ranks symbols by their change over one window, best
// first. Failed lists the symbols whose download for this window failed.
type PerformanceWindow struct {
	Label  string        `json:"label"`
	From   time.Time     `json:"from"`
	To     time.Time     `json:"to"`
	Median *float64      `json:"median"`
	Rows   []Performance `json:"rows"`
	Failed []string      `json:"failed"`
}

// PerformanceResult is the constituent performance view: the year to date
// and the last trading day, each from its own download.
type PerformanceResult struct {
	ETF     string            `json:"etf"`
	YTD     PerformanceWindow `json:"ytd"`
	LastDay PerformanceWindow `json:"last_day"`
}
