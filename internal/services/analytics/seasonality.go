package analytics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/features"
)

const (
	// HalfMonthBuckets is the number of half-month buckets in a year.
	HalfMonthBuckets = 24
	// SignificanceLevel is the threshold for the Bonferroni-adjusted p-value.
	SignificanceLevel = 0.05
)

// TradingDayOrdinals numbers observations within each calendar year,
// starting at 1 on the first trading day of every year. dates must be
// ascending.
func TradingDayOrdinals(dates []time.Time) []int {
	out := make([]int, len(dates))
	year, n := -1, 0
	for i, d := range dates {
		if d.Year() != year {
			year, n = d.Year(), 0
		}
		n++
		out[i] = n
	}
	return out
}

// HalfMonthIndex maps a date to its bucket in [0, 24): the first half of a
// month is days 1-15.
func HalfMonthIndex(d time.Time) int {
	idx := (int(d.Month()) - 1) * 2
	if d.Day() > 15 {
		idx++
	}
	return idx
}

// HalfMonthLabel names bucket idx, e.g. "Jan1H" or "Dec2H".
func HalfMonthLabel(idx int) string {
	m := time.Month(idx/2 + 1)
	return fmt.Sprintf("%s%dH", m.String()[:3], idx%2+1)
}

// ComputeSeasonality derives the seasonal profile of a single series.
//
// Daily simple returns are grouped by trading-day-of-year ordinal; the
// curve compounds the per-ordinal mean return and the band is the curve
// plus or minus the per-ordinal standard deviation. Ordinals without any
// return are skipped. Half-month buckets are tested against a zero mean
// with a two-sided one-sample t-test; p-values are multiplied by the number
// of buckets.
func ComputeSeasonality(series *models.PriceSeries) (*models.SeasonalCurve, error) {
	if series == nil || series.Len() == 0 {
		return nil, domain.ErrNoData
	}
	if series.Len() < 2 {
		return nil, fmt.Errorf("seasonality %s: %w", series.Symbol, domain.ErrInsufficientHistory)
	}
	dates := make([]time.Time, series.Len())
	for i, p := range series.Points {
		dates[i] = p.Date
	}
	returns := features.PctChange(series.Values())
	ordinals := TradingDayOrdinals(dates)

	out := &models.SeasonalCurve{
		Symbol: series.Symbol,
		From:   dates[0],
		To:     dates[len(dates)-1],
		Years:  dates[len(dates)-1].Year() - dates[0].Year() + 1,
	}

	maxOrd := 0
	for _, o := range ordinals {
		if o > maxOrd {
			maxOrd = o
		}
	}
	byOrdinal := make([][]float64, maxOrd+1)
	for i, r := range returns {
		if !math.IsNaN(r) {
			byOrdinal[ordinals[i]] = append(byOrdinal[ordinals[i]], r)
		}
	}
	growth := 1.0
	for ord := 1; ord <= maxOrd; ord++ {
		rs := byOrdinal[ord]
		if len(rs) == 0 {
			continue
		}
		mean := stat.Mean(rs, nil)
		growth *= 1 + mean
		pt := models.SeasonalPoint{Ordinal: ord, Observations: len(rs), Mean: mean, Cumulative: growth - 1}
		if len(rs) > 1 {
			sd := stat.StdDev(rs, nil)
			pt.StdDev = models.F64(sd)
			pt.Upper = models.F64(pt.Cumulative + sd)
			pt.Lower = models.F64(pt.Cumulative - sd)
		}
		out.Points = append(out.Points, pt)
	}

	out.CurrentYear = out.To.Year()
	growth = 1.0
	for i, r := range returns {
		if dates[i].Year() != out.CurrentYear || math.IsNaN(r) {
			continue
		}
		growth *= 1 + r
		out.Current = append(out.Current, models.YearPoint{Ordinal: ordinals[i], Date: dates[i], Cumulative: growth - 1})
	}

	out.HalfMonths = halfMonthStats(dates, returns)
	return out, nil
}

func halfMonthStats(dates []time.Time, returns []float64) []models.HalfMonthStat {
	buckets := make([][]float64, HalfMonthBuckets)
	for i, r := range returns {
		if !math.IsNaN(r) {
			idx := HalfMonthIndex(dates[i])
			buckets[idx] = append(buckets[idx], r)
		}
	}
	out := make([]models.HalfMonthStat, HalfMonthBuckets)
	for idx, rs := range buckets {
		st := models.HalfMonthStat{
			Label: HalfMonthLabel(idx),
			Month: time.Month(idx/2 + 1),
			Half:  idx%2 + 1,
			N:     len(rs),
		}
		if len(rs) > 0 {
			st.Mean = models.F64(stat.Mean(rs, nil))
		}
		if t, p, ok := OneSampleTTest(rs, 0); ok {
			adj := p * HalfMonthBuckets
			if !math.IsInf(t, 0) {
				st.TStat = models.F64(t)
			}
			st.PValue = models.F64(p)
			st.AdjustedP = models.F64(adj)
			st.Significant = adj < SignificanceLevel
		}
		out[idx] = st
	}
	return out
}

// OneSampleTTest tests whether the mean of xs differs from mu. It returns
// the t statistic and two-sided p-value; ok is false when the test is
// undefined (fewer than two values, or no variance around mu).
func OneSampleTTest(xs []float64, mu float64) (t, p float64, ok bool) {
	n := len(xs)
	if n < 2 {
		return 0, 0, false
	}
	mean, sd := stat.MeanStdDev(xs, nil)
	if sd == 0 {
		if mean == mu {
			return 0, 0, false
		}
		return math.Copysign(math.Inf(1), mean-mu), 0, true
	}
	t = (mean - mu) / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	p = 2 * (1 - dist.CDF(math.Abs(t)))
	return t, p, true
}
