package models

import (
	"math"
	"sort"
	"time"
)

// PriceTable is a single-field, date-indexed table with one column per
// symbol. Values[j] is aligned with Dates for Symbols[j]; NaN is missing.
type PriceTable struct {
	Field   Field       `json:"field"`
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"-"`
}

// Len returns the number of rows.
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// Empty reports whether the table has no rows or no symbols.
func (t *PriceTable) Empty() bool {
	return t == nil || len(t.Dates) == 0 || len(t.Symbols) == 0
}

// Index returns the column position of symbol or -1.
func (t *PriceTable) Index(symbol string) int {
	for i, s := range t.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Column returns the values for symbol.
func (t *PriceTable) Column(symbol string) ([]float64, bool) {
	i := t.Index(symbol)
	if i < 0 {
		return nil, false
	}
	return t.Values[i], true
}

// Latest returns the last date of the index.
func (t *PriceTable) Latest() time.Time {
	if t.Len() == 0 {
		return time.Time{}
	}
	return t.Dates[len(t.Dates)-1]
}

// RowsFrom returns the position of the first row dated on or after d.
func (t *PriceTable) RowsFrom(d time.Time) int {
	return sort.Search(len(t.Dates), func(i int) bool { return !t.Dates[i].Before(d) })
}

// Slice returns a view of rows [from, len).
func (t *PriceTable) Slice(from int) *PriceTable {
	out := &PriceTable{Field: t.Field, Symbols: t.Symbols, Dates: t.Dates[from:]}
	out.Values = make([][]float64, len(t.Values))
	for i, col := range t.Values {
		out.Values[i] = col[from:]
	}
	return out
}

// Series extracts a symbol's non-missing observations.
func (t *PriceTable) Series(symbol string) (*PriceSeries, bool) {
	col, ok := t.Column(symbol)
	if !ok {
		return nil, false
	}
	s := &PriceSeries{Symbol: symbol}
	for i, v := range col {
		if !math.IsNaN(v) {
			s.Points = append(s.Points, Point{Date: t.Dates[i], Value: v})
		}
	}
	return s, true
}
