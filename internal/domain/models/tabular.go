package models

import (
	"strconv"
	"time"
)

// Tabular is implemented by results that can be exported as a flat table.
type Tabular interface {
	Header() []string
	Records() [][]string
}

// DateLayout is the calendar-date format used in exports.
const DateLayout = "2006-01-02"

func cell(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optCell(v *float64) string {
	if v == nil {
		return ""
	}
	return cell(*v)
}

func dateCell(t time.Time) string { return t.Format(DateLayout) }

// Header implements Tabular.
func (t *ReturnsTable) Header() []string {
	h := []string{"Ticker"}
	for _, p := range t.Periods {
		h = append(h, p.Label)
	}
	return h
}

// Records implements Tabular. Undefined cells are empty.
func (t *ReturnsTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := []string{r.Symbol}
		for _, p := range t.Periods {
			if v, ok := r.Returns[p.Label]; ok {
				rec = append(rec, cell(v))
			} else {
				rec = append(rec, "")
			}
		}
		out = append(out, rec)
	}
	return out
}

// Header implements Tabular.
func (b *BreadthSeries) Header() []string {
	h := []string{"Date"}
	for _, w := range b.Windows {
		h = append(h, "% > "+strconv.Itoa(w)+"D SMA")
	}
	return h
}

// Records implements Tabular.
func (b *BreadthSeries) Records() [][]string {
	out := make([][]string, 0, len(b.Points))
	for _, p := range b.Points {
		rec := []string{dateCell(p.Date)}
		for _, v := range p.Pct {
			rec = append(rec, optCell(v))
		}
		out = append(out, rec)
	}
	return out
}

// Header implements Tabular.
func (s *SeasonalCurve) Header() []string {
	return []string{"Ordinal", "Observations", "Mean", "StdDev", "Cumulative", "Upper", "Lower"}
}

// Records implements Tabular.
func (s *SeasonalCurve) Records() [][]string {
	out := make([][]string, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, []string{
			strconv.Itoa(p.Ordinal), strconv.Itoa(p.Observations), cell(p.Mean),
			optCell(p.StdDev), cell(p.Cumulative), optCell(p.Upper), optCell(p.Lower),
		})
	}
	return out
}

// HoldingList is an ETF constituent list.
type HoldingList []Holding

// Header implements Tabular.
func (h HoldingList) Header() []string { return []string{"Ticker", "Weight"} }

// Records implements Tabular.
func (h HoldingList) Records() [][]string {
	out := make([][]string, 0, len(h))
	for _, x := range h {
		out = append(out, []string{x.Symbol, cell(x.Weight)})
	}
	return out
}

// Symbols returns the constituent tickers in list order.
func (h HoldingList) Symbols() []string {
	out := make([]string, len(h))
	for i, x := range h {
		out[i] = x.Symbol
	}
	return out
}

// Header implements Tabular.
func (s *SimilarityResult) Header() []string {
	return []string{"Ticker", "Correlation", "LatestBeta", "MeanBeta", "BetaStd"}
}

// Records implements Tabular.
func (s *SimilarityResult) Records() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, []string{r.Symbol, cell(r.Correlation), optCell(r.LatestBeta), optCell(r.MeanBeta), optCell(r.BetaStd)})
	}
	return out
}

// Header implements Tabular.
func (f *FactorResult) Header() []string {
	return []string{"Factor", "Correlation", "Beta", "MeanBeta", "BetaStd", "BetaZ", "Sharpe"}
}

// Records implements Tabular.
func (f *FactorResult) Records() [][]string {
	out := make([][]string, 0, len(f.Rows))
	for _, r := range f.Rows {
		out = append(out, []string{r.Factor, optCell(r.Correlation), optCell(r.Beta), optCell(r.MeanBeta), optCell(r.BetaStd), optCell(r.BetaZ), optCell(r.Sharpe)})
	}
	return out
}

// Header implements Tabular.
func (d *DominanceResult) Header() []string {
	return []string{"Ticker", "Score", "Share", "StartAngle", "EndAngle"}
}

// Records implements Tabular.
func (d *DominanceResult) Records() [][]string {
	out := make([][]string, 0, len(d.Rows))
	for _, r := range d.Rows {
		out = append(out, []string{r.Symbol, cell(r.Score), cell(r.Share), cell(r.StartAngle), cell(r.EndAngle)})
	}
	return out
}

// Header implements Tabular.
func (c *ComplacencyResult) Header() []string {
	return []string{"Date", "Ratio", "SMA", "Upper", "Lower", "SPX"}
}

// Records implements Tabular.
func (c *ComplacencyResult) Records() [][]string {
	out := make([][]string, 0, len(c.Points))
	for _, p := range c.Points {
		out = append(out, []string{dateCell(p.Date), cell(p.Ratio), optCell(p.SMA), optCell(p.Upper), optCell(p.Lower), optCell(p.SPX)})
	}
	return out
}

// Header implements Tabular.
func (r *RotationResult) Header() []string {
	return []string{"Date", "Ticker", "Momentum", "RelativeStrength"}
}

// Records implements Tabular.
func (r *RotationResult) Records() [][]string {
	out := make([][]string, 0, len(r.Points))
	for _, p := range r.Points {
		out = append(out, []string{dateCell(p.Date), p.Symbol, cell(p.Momentum), cell(p.RelativeStrength)})
	}
	return out
}

// Header implements Tabular.
func (m *MovesResult) Header() []string {
	return []string{"Date", "-3D %", "-1D %", "Day %", "+1D %", "+3D %", "+5D %", "+21D %"}
}

// Records implements Tabular.
func (m *MovesResult) Records() [][]string {
	out := make([][]string, 0, len(m.Moves))
	for _, x := range m.Moves {
		out = append(out, []string{dateCell(x.Date), cell(x.Prev3D), cell(x.Prev1D), cell(x.Day), optCell(x.Next1D), optCell(x.Next3D), optCell(x.Next5D), optCell(x.Next21D)})
	}
	return out
}

// Header implements Tabular.
func (o *OverlayResult) Header() []string { return []string{"Start", "End", "Correlation"} }

// Records implements Tabular.
func (o *OverlayResult) Records() [][]string {
	out := make([][]string, 0, len(o.Matches))
	for _, m := range o.Matches {
		out = append(out, []string{dateCell(m.Start), dateCell(m.End), cell(m.Correlation)})
	}
	return out
}

// Header implements Tabular.
func (p *PerformanceResult) Header() []string { return []string{"Window", "Ticker", "Change %"} }

// Records implements Tabular. YTD rows come first.
func (p *PerformanceResult) Records() [][]string {
	out := make([][]string, 0, len(p.YTD.Rows)+len(p.LastDay.Rows))
	for _, w := range []PerformanceWindow{p.YTD, p.LastDay} {
		for _, r := range w.Rows {
			out = append(out, []string{w.Label, r.Symbol, cell(r.Change)})
		}
	}
	return out
}
