package frame

import (
	"fmt"
	"math"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
)

// Policy decides what happens to partially missing data.
type Policy int

const (
	// DropAllMissing keeps a symbol unless every value is missing.
	DropAllMissing Policy = iota
	// DropAnyMissing removes a symbol with at least one missing value.
	DropAnyMissing
	// DropRowsAnyMissing removes every date where some symbol is missing.
	DropRowsAnyMissing
)

func (p Policy) String() string {
	switch p {
	case DropAnyMissing:
		return "drop-any"
	case DropRowsAnyMissing:
		return "drop-rows"
	default:
		return "drop-all"
	}
}

// ExtractField selects one field across all symbols of raw.
//
// Two-level frames yield one column per symbol carrying field; flat
// single-symbol frames yield a single column named after the frame's
// symbol. Columns with no data are always dropped, then policy is applied
// and dates with no remaining data are removed. An empty frame yields an
// empty table; a frame without the field yields a *domain.StructuralError.
func ExtractField(raw *models.RawFrame, field models.Field, policy Policy) (*models.PriceTable, error) {
	out := &models.PriceTable{Field: field}
	if raw.Empty() {
		return out, nil
	}

	var symbols []string
	var cols [][]float64
	if raw.Hierarchical {
		for i, c := range raw.Columns {
			if c.Field == field {
				symbols = append(symbols, c.Symbol)
				cols = append(cols, raw.Data[i])
			}
		}
	} else if col, ok := raw.Column(models.ColumnKey{Field: field}); ok {
		symbols = []string{raw.Symbol}
		cols = [][]float64{col}
	}
	if len(symbols) == 0 {
		return nil, &domain.StructuralError{Want: string(field), Observed: raw.ColumnNames()}
	}

	keep := make([]int, 0, len(symbols))
	for j, col := range cols {
		n := countMissing(col)
		if n == len(col) {
			continue
		}
		if policy == DropAnyMissing && n > 0 {
			continue
		}
		keep = append(keep, j)
	}

	rows := make([]int, 0, raw.Len())
	for i := range raw.Index {
		present := 0
		for _, j := range keep {
			if !math.IsNaN(cols[j][i]) {
				present++
			}
		}
		if present == 0 {
			continue
		}
		if policy == DropRowsAnyMissing && present < len(keep) {
			continue
		}
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		return out, nil
	}

	out.Dates = make([]time.Time, len(rows))
	for k, i := range rows {
		out.Dates[k] = raw.Index[i]
	}
	for _, j := range keep {
		vals := make([]float64, len(rows))
		for k, i := range rows {
			vals[k] = cols[j][i]
		}
		out.Symbols = append(out.Symbols, symbols[j])
		out.Values = append(out.Values, vals)
	}
	return out, nil
}

// Series extracts one symbol's observations of field from raw.
func Series(raw *models.RawFrame, symbol string, field models.Field) (*models.PriceSeries, error) {
	table, err := ExtractField(raw, field, DropAllMissing)
	if err != nil {
		return nil, err
	}
	s, ok := table.Series(symbol)
	if !ok || s.Len() == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, field, domain.ErrNoData)
	}
	return s, nil
}

func countMissing(col []float64) int {
	n := 0
	for _, v := range col {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
