package analytics

import (
	"math"
	"sort"
	"strings"

	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// ComputeReturns builds the multi-period return table of closes.
//
// For each period the window holds the rows dated on or after
// latest - Days calendar days; the return is (last - first) / first * 100,
// rounded to two decimals, from the first and last observation of the
// symbol inside the window. A window with fewer than two observations
// leaves the cell undefined (absent from the row). The benchmark row is
// placed first when the table has it; the remaining rows are ordered by the
// first period descending, undefined last.
func ComputeReturns(closes *models.PriceTable, benchmark string, periods []models.Period) *models.ReturnsTable {
	if len(periods) == 0 {
		periods = models.DefaultPeriods
	}
	out := &models.ReturnsTable{Periods: periods, Rows: []models.ReturnsRow{}}
	if closes.Empty() {
		return out
	}
	latest := closes.Latest()
	out.AsOf = latest

	starts := make([]int, len(periods))
	for i, p := range periods {
		starts[i] = closes.RowsFrom(latest.AddDate(0, 0, -p.Days))
	}

	var bench *models.ReturnsRow
	rows := make([]models.ReturnsRow, 0, len(closes.Symbols))
	for j, sym := range closes.Symbols {
		row := models.ReturnsRow{Symbol: sym, Returns: make(map[string]float64, len(periods))}
		for i, p := range periods {
			if r, ok := windowReturn(closes.Values[j][starts[i]:]); ok {
				row.Returns[p.Label] = r
			}
		}
		if benchmark != "" && strings.EqualFold(sym, benchmark) && bench == nil {
			row.Benchmark = true
			bench = &row
			continue
		}
		rows = append(rows, row)
	}

	key := periods[0].Label
	sort.SliceStable(rows, func(a, b int) bool {
		ra, oka := rows[a].Returns[key]
		rb, okb := rows[b].Returns[key]
		switch {
		case oka && okb && ra != rb:
			return ra > rb
		case oka != okb:
			return oka
		default:
			return rows[a].Symbol < rows[b].Symbol
		}
	})
	if bench != nil {
		out.Rows = append(out.Rows, *bench)
	}
	out.Rows = append(out.Rows, rows...)
	return out
}

func windowReturn(vals []float64) (float64, bool) {
	first, last := -1, -1
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 || first == last || vals[first] == 0 {
		return 0, false
	}
	return features.Round((vals[last]-vals[first])/vals[first]*100, 2), true
}
