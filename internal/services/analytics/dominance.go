package analytics

import (
	"math"
	"sort"

	"SectorScope/internal/domain/models"
)

// ComputeDominance scores each symbol by the sum over days of
// |close - open| / open * volume * close and returns the top symbols with
// their share of the top total and the polar arc each share spans.
// Symbols must be present in all three tables.
func ComputeDominance(open, closes, volume *models.PriceTable, top int) *models.DominanceResult {
	out := &models.DominanceResult{Rows: []models.DominanceRow{}}
	if closes.Empty() {
		return out
	}
	out.From, out.To = closes.Dates[0], closes.Latest()

	oIdx := dateIndex(open)
	vIdx := dateIndex(volume)
	for j, sym := range closes.Symbols {
		oc, ok1 := open.Column(sym)
		vc, ok2 := volume.Column(sym)
		if !ok1 || !ok2 {
			continue
		}
		score := 0.0
		for i, d := range closes.Dates {
			oi, okO := oIdx[d.Unix()]
			vi, okV := vIdx[d.Unix()]
			if !okO || !okV {
				continue
			}
			o, c, v := oc[oi], closes.Values[j][i], vc[vi]
			if math.IsNaN(o) || math.IsNaN(c) || math.IsNaN(v) || o == 0 {
				continue
			}
			score += math.Abs(c-o) / o * v * c
		}
		if score > 0 {
			out.Rows = append(out.Rows, models.DominanceRow{Symbol: sym, Score: score})
		}
	}
	sort.SliceStable(out.Rows, func(a, b int) bool { return out.Rows[a].Score > out.Rows[b].Score })
	if top > 0 && len(out.Rows) > top {
		out.Rows = out.Rows[:top]
	}
	for _, r := range out.Rows {
		out.Total += r.Score
	}
	angle := 0.0
	for i := range out.Rows {
		r := &out.Rows[i]
		r.Share = r.Score / out.Total
		r.StartAngle = angle
		angle += r.Share * 360
		r.EndAngle = angle
	}
	return out
}

func dateIndex(t *models.PriceTable) map[int64]int {
	m := make(map[int64]int, t.Len())
	for i, d := range t.Dates {
		m[d.Unix()] = i
	}
	return m
}
