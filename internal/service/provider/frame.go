package provider

import (
	"math"
	"sort"
	"time"

	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
)

// BuildFrame assembles per-symbol bars into a provider frame. A request for
// a single symbol yields a flat frame; otherwise columns are (symbol,
// field), ordered by symbol then field for GroupByTicker and by field then
// symbol for GroupByColumn. Symbols without bars are left out.
func BuildFrame(requested []string, bars map[string][]models.Bar, group domrepo.GroupBy) *models.RawFrame {
	set := make(map[int64]struct{})
	for _, sym := range requested {
		for _, b := range bars[sym] {
			set[b.Date.Unix()] = struct{}{}
		}
	}
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	index := make([]time.Time, len(keys))
	pos := make(map[int64]int, len(keys))
	for i, k := range keys {
		index[i] = time.Unix(k, 0).UTC()
		pos[k] = i
	}

	column := func(sym string, f models.Field) []float64 {
		col := make([]float64, len(index))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, b := range bars[sym] {
			col[pos[b.Date.Unix()]] = b.Value(f)
		}
		return col
	}

	if len(requested) == 1 {
		sym := requested[0]
		if len(bars[sym]) == 0 {
			return models.NewFlatFrame(sym, nil)
		}
		f := models.NewFlatFrame(sym, index)
		for _, field := range models.Fields {
			f.AddColumn(models.ColumnKey{Field: field}, column(sym, field))
		}
		return f
	}

	out := models.NewFrame(index)
	present := make([]string, 0, len(requested))
	for _, sym := range requested {
		if len(bars[sym]) > 0 {
			present = append(present, sym)
		}
	}
	if group == domrepo.GroupByColumn {
		for _, field := range models.Fields {
			for _, sym := range present {
				out.AddColumn(models.ColumnKey{Symbol: sym, Field: field}, column(sym, field))
			}
		}
		return out
	}
	for _, sym := range present {
		for _, field := range models.Fields {
			out.AddColumn(models.ColumnKey{Symbol: sym, Field: field}, column(sym, field))
		}
	}
	return out
}

// AutoAdjust rescales open, high, low and close by adjclose / close so the
// series is continuous across splits and dividends.
func AutoAdjust(bars []models.Bar) {
	for i := range bars {
		b := &bars[i]
		if b.Close == 0 || math.IsNaN(b.AdjClose) || b.AdjClose == 0 {
			continue
		}
		ratio := b.AdjClose / b.Close
		b.Open *= ratio
		b.High *= ratio
		b.Low *= ratio
		b.Close = b.AdjClose
	}
}

// Dedupe sorts bars by date and keeps the last bar of each date.
func Dedupe(bars []models.Bar) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
