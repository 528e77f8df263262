package analytics

import (
	"fmt"
	"math"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

// ComplacencyParams configures ComputeComplacency.
type ComplacencyParams struct {
	VVIX       string
	VIX        string
	SPX        string
	Window     int
	Multiplier float64
}

// DefaultComplacencyParams uses a 50-day band of 1.67 standard deviations.
func DefaultComplacencyParams() ComplacencyParams {
	return ComplacencyParams{VVIX: "^VVIX", VIX: "^VIX", SPX: "^GSPC", Window: 50, Multiplier: 1.67}
}

// ComputeComplacency tracks the VVIX/VIX ratio against its moving average
// band. closes must be row-aligned (no missing values). Breaks are the
// dates on which the ratio sits below the lower band.
func ComputeComplacency(closes *models.PriceTable, p ComplacencyParams) (*models.ComplacencyResult, error) {
	vvix, ok1 := closes.Column(p.VVIX)
	vix, ok2 := closes.Column(p.VIX)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("complacency needs %s and %s: %w", p.VVIX, p.VIX, domain.ErrNoData)
	}
	spx, hasSPX := closes.Column(p.SPX)

	ratio := make([]float64, closes.Len())
	for i := range ratio {
		if vix[i] == 0 {
			ratio[i] = math.NaN()
			continue
		}
		ratio[i] = vvix[i] / vix[i]
	}
	sma := features.RollingMean(ratio, p.Window)
	sd := features.RollingStd(ratio, p.Window)

	out := &models.ComplacencyResult{Window: p.Window, Multiplier: p.Multiplier, Points: []models.ComplacencyPoint{}, Breaks: []time.Time{}}
	for i, d := range closes.Dates {
		if math.IsNaN(ratio[i]) {
			continue
		}
		pt := models.ComplacencyPoint{Date: d, Ratio: ratio[i]}
		if !math.IsNaN(sma[i]) {
			pt.SMA = models.F64(sma[i])
		}
		if !math.IsNaN(sma[i]) && !math.IsNaN(sd[i]) {
			upper := sma[i] + p.Multiplier*sd[i]
			lower := sma[i] - p.Multiplier*sd[i]
			pt.Upper, pt.Lower = models.F64(upper), models.F64(lower)
			if ratio[i] < lower {
				out.Breaks = append(out.Breaks, d)
			}
		}
		if hasSPX && !math.IsNaN(spx[i]) {
			pt.SPX = models.F64(spx[i])
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}
