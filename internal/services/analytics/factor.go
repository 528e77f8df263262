package analytics

import (
	"fmt"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// DefaultFactors are the factor proxies used when none are given.
var DefaultFactors = []string{"MTUM", "VLUE", "QUAL", "SPLV", "IWM", "SPHB", "SPYG", "RSP", "USMV"}

// FactorParams configures ComputeFactorExposure.
type FactorParams struct {
	Symbol  string
	Factors []string
	Window  int
}

// ComputeFactorExposure measures a symbol's daily-return sensitivity to
// each factor ETF over a rolling window. Factors missing from closes are
// skipped.
func ComputeFactorExposure(closes *models.PriceTable, p FactorParams) (*models.FactorResult, error) {
	if p.Window < 2 {
		return nil, fmt.Errorf("factor window %d: %w", p.Window, domain.ErrInsufficientHistory)
	}
	if len(p.Factors) == 0 {
		p.Factors = DefaultFactors
	}
	sym, ok := closes.Column(p.Symbol)
	if !ok {
		return nil, fmt.Errorf("symbol %s: %w", p.Symbol, domain.ErrNoData)
	}
	symRet := features.PctChange(sym)

	out := &models.FactorResult{Symbol: p.Symbol, Window: p.Window, AsOf: closes.Latest(), Rows: []models.FactorExposure{}}
	for _, f := range p.Factors {
		col, ok := closes.Column(f)
		if !ok {
			continue
		}
		factorRet := features.PctChange(col)
		row := models.FactorExposure{Factor: f}
		if mean, std, ok := features.MeanStd(factorRet); ok && std != 0 {
			row.Sharpe = models.F64(mean / std)
		}
		y, x := pairAlign(symRet, factorRet)
		if c, ok := features.Last(features.RollingCorrelation(x, y, p.Window)); ok {
			row.Correlation = models.F64(c)
		}
		betas := features.RollingBeta(y, x, p.Window)
		last, hasLast := features.Last(betas)
		if hasLast {
			row.Beta = models.F64(last)
		}
		if mean, std, ok := features.MeanStd(betas); ok {
			row.MeanBeta = models.F64(mean)
			row.BetaStd = models.F64(std)
			if hasLast && std != 0 {
				row.BetaZ = models.F64((last - mean) / std)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
