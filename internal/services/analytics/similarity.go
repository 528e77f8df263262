package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// SimilarityParams configures ComputeSimilarity.
type SimilarityParams struct {
	Target string
	Market string
	Window int
	Limit  int
}

type similarityCandidate struct {
	row   models.SimilarityRow
	corr  models.RollingSeries
	betas models.RollingSeries
}

// ComputeSimilarity ranks the universe by the latest rolling correlation of
// closes with the target, pairwise aligned on dates where both trade. Each
// row also carries the rolling beta of daily returns against the market.
// The rolling correlation and beta series of every ranked symbol are
// returned alongside the rows.
func ComputeSimilarity(closes *models.PriceTable, p SimilarityParams) (*models.SimilarityResult, error) {
	if p.Window < 2 {
		return nil, fmt.Errorf("similarity window %d: %w", p.Window, domain.ErrInsufficientHistory)
	}
	target, ok := closes.Column(p.Target)
	if !ok {
		return nil, fmt.Errorf("target %s: %w", p.Target, domain.ErrNoData)
	}
	market, hasMarket := closes.Column(p.Market)
	var marketRet []float64
	if hasMarket {
		marketRet = features.PctChange(market)
	}

	cands := make([]similarityCandidate, 0, len(closes.Symbols))
	for j, sym := range closes.Symbols {
		if strings.EqualFold(sym, p.Target) || strings.EqualFold(sym, p.Market) {
			continue
		}
		x, y, at := pairAlignDated(closes.Dates, target, closes.Values[j])
		corrs := features.RollingCorrelation(x, y, p.Window)
		corr, ok := features.Last(corrs)
		if !ok {
			continue
		}
		c := similarityCandidate{
			row:   models.SimilarityRow{Symbol: sym, Correlation: corr},
			corr:  models.RollingSeries{Symbol: sym, Points: dated(at, corrs)},
			betas: models.RollingSeries{Symbol: sym, Points: []models.Point{}},
		}
		if hasMarket {
			sr, mr, bat := pairAlignDated(closes.Dates, features.PctChange(closes.Values[j]), marketRet)
			betas := features.RollingBeta(sr, mr, p.Window)
			if last, ok := features.Last(betas); ok {
				c.row.LatestBeta = models.F64(last)
			}
			if mean, std, ok := features.MeanStd(betas); ok {
				c.row.MeanBeta = models.F64(mean)
				c.row.BetaStd = models.F64(std)
			}
			c.betas.Points = dated(bat, betas)
		}
		cands = append(cands, c)
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].row.Correlation > cands[b].row.Correlation })
	if p.Limit > 0 && len(cands) > p.Limit {
		cands = cands[:p.Limit]
	}

	out := &models.SimilarityResult{
		Target:       p.Target,
		Market:       p.Market,
		Window:       p.Window,
		AsOf:         closes.Latest(),
		Rows:         make([]models.SimilarityRow, 0, len(cands)),
		Correlations: make([]models.RollingSeries, 0, len(cands)),
		Betas:        make([]models.RollingSeries, 0, len(cands)),
	}
	for _, c := range cands {
		out.Rows = append(out.Rows, c.row)
		out.Correlations = append(out.Correlations, c.corr)
		out.Betas = append(out.Betas, c.betas)
	}
	return out, nil
}

// pairAlign keeps positions where both a and b are present.
func pairAlign(a, b []float64) (x, y []float64) {
	x, y, _ = pairAlignDated(nil, a, b)
	return x, y
}

// pairAlignDated is pairAlign that also returns the dates of the kept
// positions when dates is given.
func pairAlignDated(dates []time.Time, a, b []float64) (x, y []float64, at []time.Time) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	x = make([]float64, 0, n)
	y = make([]float64, 0, n)
	if dates != nil {
		at = make([]time.Time, 0, n)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
		if dates != nil && i < len(dates) {
			at = append(at, dates[i])
		}
	}
	return x, y, at
}

// dated pairs values with their dates, dropping NaN positions.
func dated(at []time.Time, values []float64) []models.Point {
	out := make([]models.Point, 0, len(values))
	for i, v := range values {
		if i >= len(at) || math.IsNaN(v) {
			continue
		}
		out = append(out, models.Point{Date: at[i], Value: v})
	}
	return out
}
