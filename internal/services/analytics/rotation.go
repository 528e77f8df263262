package analytics

import (
	"fmt"
	"math"
	"strings"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
)

// SectorETFs maps the default rotation universe to sector names.
var SectorETFs = map[string]string{
	"XLB":  "Materials",
	"XLC":  "Comm Services",
	"XLE":  "Energy",
	"XLF":  "Financials",
	"XLI":  "Industrials",
	"XLK":  "Technology",
	"XLP":  "Consumer Staples",
	"XLRE": "Real Estate",
	"XLU":  "Utilities",
	"XLV":  "Health Care",
	"XLY":  "Cons Discretionary",
	"XBI":  "Biotech",
	"XRT":  "Retail",
	"KRE":  "Regional Banks",
	"ITB":  "Homebuilders",
	"IBB":  "Large Biotech",
}

// RotationParams configures ComputeRotation.
type RotationParams struct {
	Benchmark    string
	MomentumDays int
	StrengthDays int
	HistoryDays  int
}

// ComputeRotation places every symbol on a momentum versus relative
// strength plane for each of the last HistoryDays rows (all rows when 0).
// Momentum is the percent change over MomentumDays rows; relative strength
// is the percent change over StrengthDays rows minus the benchmark's.
func ComputeRotation(closes *models.PriceTable, p RotationParams) (*models.RotationResult, error) {
	if p.MomentumDays < 1 || p.StrengthDays < 1 {
		return nil, fmt.Errorf("rotation lookbacks must be positive")
	}
	bench, ok := closes.Column(p.Benchmark)
	if !ok {
		return nil, fmt.Errorf("benchmark %s: %w", p.Benchmark, domain.ErrNoData)
	}
	out := &models.RotationResult{
		Benchmark:    p.Benchmark,
		MomentumDays: p.MomentumDays,
		StrengthDays: p.StrengthDays,
		Points:       []models.RotationPoint{},
		Latest:       []models.RotationPoint{},
	}
	first := p.StrengthDays
	if p.MomentumDays > first {
		first = p.MomentumDays
	}
	if p.HistoryDays > 0 && closes.Len()-p.HistoryDays > first {
		first = closes.Len() - p.HistoryDays
	}
	last := closes.Len() - 1
	for i := first; i <= last; i++ {
		benchMove, ok := change(bench, i, p.StrengthDays)
		if !ok {
			continue
		}
		for j, sym := range closes.Symbols {
			if strings.EqualFold(sym, p.Benchmark) {
				continue
			}
			mom, ok1 := change(closes.Values[j], i, p.MomentumDays)
			str, ok2 := change(closes.Values[j], i, p.StrengthDays)
			if !ok1 || !ok2 {
				continue
			}
			pt := models.RotationPoint{Date: closes.Dates[i], Symbol: sym, Momentum: mom * 100, RelativeStrength: (str - benchMove) * 100}
			out.Points = append(out.Points, pt)
			if i == last {
				out.Latest = append(out.Latest, pt)
			}
		}
	}
	best := -1.0
	for _, pt := range out.Latest {
		if d := math.Hypot(pt.Momentum, pt.RelativeStrength); d > best {
			best, out.TopMover = d, pt.Symbol
		}
	}
	return out, nil
}

func change(col []float64, i, lag int) (float64, bool) {
	if i-lag < 0 {
		return 0, false
	}
	cur, past := col[i], col[i-lag]
	if math.IsNaN(cur) || math.IsNaN(past) || past == 0 {
		return 0, false
	}
	return (cur - past) / past, true
}
