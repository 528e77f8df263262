package analytics

import (
	"math"
	"time"

	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// aboveTolerance absorbs rounding drift of the incremental window sums so a
// close equal to its average is never reported above it.
const aboveTolerance = 1e-12

// ComputeBreadth reports, for every date on or after start, the percentage
// of symbols whose close is strictly above their simple moving average for
// each window length. Only rows from start onward feed the averages. A
// symbol without a complete window on a date is left out of that date's
// denominator. Averages are maintained incrementally per symbol.
func ComputeBreadth(closes *models.PriceTable, start time.Time, windows []int) *models.BreadthSeries {
	if len(windows) == 0 {
		windows = models.SMAWindows
	}
	out := &models.BreadthSeries{Start: start, Windows: windows, Points: []models.BreadthPoint{}}
	if closes.Empty() {
		return out
	}
	t := closes.Slice(closes.RowsFrom(start))
	n := t.Len()
	if n == 0 {
		return out
	}

	above := make([][]int, len(windows))
	counted := make([][]int, len(windows))
	for k, w := range windows {
		above[k] = make([]int, n)
		counted[k] = make([]int, n)
		for _, col := range t.Values {
			sma := features.RollingMean(col, w)
			for i := 0; i < n; i++ {
				if math.IsNaN(sma[i]) || math.IsNaN(col[i]) {
					continue
				}
				counted[k][i]++
				if col[i]-sma[i] > aboveTolerance*math.Abs(sma[i]) {
					above[k][i]++
				}
			}
		}
	}

	out.Points = make([]models.BreadthPoint, n)
	for i := 0; i < n; i++ {
		p := models.BreadthPoint{Date: t.Dates[i], Pct: make([]*float64, len(windows)), Counted: make([]int, len(windows))}
		for k := range windows {
			p.Counted[k] = counted[k][i]
			if counted[k][i] > 0 {
				p.Pct[k] = models.F64(float64(above[k][i]) / float64(counted[k][i]) * 100)
			}
		}
		out.Points[i] = p
	}
	return out
}
