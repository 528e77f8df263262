package analytics

import (
	"time"

	"SectorScope/internal/domain/models"
)

func dayN(i int) time.Time {
	return time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// tableOf builds a daily table where cols[sym] are aligned with consecutive days.
func tableOf(dates []time.Time, order []string, cols map[string][]float64) *models.PriceTable {
	t := &models.PriceTable{Field: models.FieldClose, Dates: dates}
	for _, s := range order {
		t.Symbols = append(t.Symbols, s)
		t.Values = append(t.Values, cols[s])
	}
	return t
}

func consecutive(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = dayN(i)
	}
	return out
}

// weekdays returns n business days starting at from.
func weekdays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := from; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}
