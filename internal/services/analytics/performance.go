package analytics

import (
	"math"
	"sort"

	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// PerformanceSpan selects which two closes a performance figure compares.
type PerformanceSpan int

const (
	// SinceFirst compares the last close with the first in the table.
	SinceFirst PerformanceSpan = iota
	// LastDay compares the last close with the one before it.
	LastDay
)

const (
	LabelYTD     = "ytd"
	LabelLastDay = "last_day"
)

// ComputePerformance ranks the symbols of closes by percent change over
// span, best first. Missing closes are dropped per symbol; symbols with
// fewer than two closes or a zero base are left out.
func ComputePerformance(closes *models.PriceTable, label string, span PerformanceSpan) models.PerformanceWindow {
	out := models.PerformanceWindow{Label: label, Rows: []models.Performance{}, Failed: []string{}}
	if closes == nil {
		return out
	}
	if n := len(closes.Dates); n > 0 {
		out.From, out.To = closes.Dates[0], closes.Dates[n-1]
	}
	for j, sym := range closes.Symbols {
		v := features.Valid(closes.Values[j])
		if len(v) < 2 {
			continue
		}
		base := v[0]
		if span == LastDay {
			base = v[len(v)-2]
		}
		if base == 0 {
			continue
		}
		out.Rows = append(out.Rows, models.Performance{Symbol: sym, Change: (v[len(v)-1] - base) / base * 100})
	}
	sort.SliceStable(out.Rows, func(a, b int) bool { return out.Rows[a].Change > out.Rows[b].Change })
	if m, ok := median(out.Rows); ok {
		out.Median = models.F64(m)
	}
	return out
}

func median(rows []models.Performance) (float64, bool) {
	n := len(rows)
	if n == 0 {
		return math.NaN(), false
	}
	v := make([]float64, n)
	for i, r := range rows {
		v[i] = r.Change
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2], true
	}
	return (v[n/2-1] + v[n/2]) / 2, true
}
