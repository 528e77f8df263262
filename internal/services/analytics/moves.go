package analytics

import (
	"math"
	"sort"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// ForwardOffsets are the trading-day horizons reported after a move.
var ForwardOffsets = []int{1, 3, 5, 21}

// ComputeExtremeMoves lists the n largest daily gains (or losses when
// losses is true) of series with the returns around each move. Moves in the
// first four rows are skipped since their lead-in is incomplete.
func ComputeExtremeMoves(series *models.PriceSeries, n int, losses bool) (*models.MovesResult, error) {
	if series == nil || series.Len() == 0 {
		return nil, domain.ErrNoData
	}
	dir := "gains"
	if losses {
		dir = "losses"
	}
	out := &models.MovesResult{Symbol: series.Symbol, Direction: dir, Moves: []models.ExtremeMove{}}
	vals := series.Values()
	rets := features.PctChange(vals)

	idx := make([]int, 0, len(rets))
	for i := 1; i < len(rets); i++ {
		if !math.IsNaN(rets[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if losses {
			return rets[idx[a]] < rets[idx[b]]
		}
		return rets[idx[a]] > rets[idx[b]]
	})
	if n > 0 && len(idx) > n {
		idx = idx[:n]
	}

	pct := func(from, to float64) float64 { return features.Round((to-from)/from*100, 2) }
	for _, t := range idx {
		if t < 4 {
			continue
		}
		m := models.ExtremeMove{
			Date:   series.Points[t].Date,
			Prev3D: pct(vals[t-4], vals[t-1]),
			Prev1D: pct(vals[t-2], vals[t-1]),
			Day:    features.Round(rets[t]*100, 2),
		}
		fwd := []**float64{&m.Next1D, &m.Next3D, &m.Next5D, &m.Next21D}
		for k, off := range ForwardOffsets {
			if t+off < len(vals) {
				*fwd[k] = models.F64(pct(vals[t], vals[t+off]))
			}
		}
		out.Moves = append(out.Moves, m)
	}
	return out, nil
}
