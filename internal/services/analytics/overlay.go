package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
)

// OverlayParams configures ComputeOverlay.
type OverlayParams struct {
	Window    int
	Threshold float64
	Limit     int
}

// DefaultOverlayParams matches a roughly seven-month window.
func DefaultOverlayParams() OverlayParams {
	return OverlayParams{Window: 151, Threshold: 0.5, Limit: 7}
}

// ComputeOverlay finds historical windows whose closes correlate with the
// most recent window above Threshold. Only the best window per start year
// is kept, the most recent year is dropped, and the Limit strongest remain.
// Each match's path covers the window and what followed it, rebased to 100.
func ComputeOverlay(series *models.PriceSeries, p OverlayParams) (*models.OverlayResult, error) {
	if series == nil || series.Len() == 0 {
		return nil, domain.ErrNoData
	}
	w := p.Window
	vals := series.Values()
	if w < 2 || len(vals) < w {
		return nil, fmt.Errorf("overlay window %d over %d rows: %w", w, len(vals), domain.ErrInsufficientHistory)
	}
	ref := vals[len(vals)-w:]
	out := &models.OverlayResult{Symbol: series.Symbol, Window: w, Threshold: p.Threshold, Reference: rebase(ref), Matches: []models.OverlayMatch{}}

	type cand struct {
		start int
		corr  float64
	}
	bestByYear := make(map[int]cand)
	var years []int
	for i := 0; i+w <= len(vals); i++ {
		c := stat.Correlation(vals[i:i+w], ref, nil)
		if math.IsNaN(c) || c <= p.Threshold {
			continue
		}
		y := series.Points[i].Date.Year()
		prev, seen := bestByYear[y]
		if !seen {
			years = append(years, y)
		}
		if !seen || c > prev.corr {
			bestByYear[y] = cand{start: i, corr: c}
		}
	}
	if len(years) > 0 {
		years = years[:len(years)-1]
	}
	cands := make([]cand, 0, len(years))
	for _, y := range years {
		cands = append(cands, bestByYear[y])
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].corr > cands[b].corr })
	if p.Limit > 0 && len(cands) > p.Limit {
		cands = cands[:p.Limit]
	}
	for _, c := range cands {
		end := c.start + 2*w - 1
		if end > len(vals) {
			end = len(vals)
		}
		out.Matches = append(out.Matches, models.OverlayMatch{
			Start:       series.Points[c.start].Date,
			End:         series.Points[c.start+w-1].Date,
			Correlation: c.corr,
			Path:        rebase(vals[c.start:end]),
		})
	}
	return out, nil
}

func rebase(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 || vals[0] == 0 {
		return out
	}
	for i, v := range vals {
		out[i] = v / vals[0] * 100
	}
	return out
}
