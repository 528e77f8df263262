package models

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// ColumnKey identifies a raw frame column. Symbol is empty in flat frames.
type ColumnKey struct {
	Symbol string `json:"symbol,omitempty"`
	Field  Field  `json:"field"`
}

// String renders the key as "SYMBOL/Field" or "Field".
func (k ColumnKey) String() string {
	if k.Symbol == "" {
		return string(k.Field)
	}
	return k.Symbol + "/" + string(k.Field)
}

// RawFrame is a date-indexed, column-major table as returned by a market
// data provider. A flat frame comes from a single-symbol download and has
// field-only columns; a hierarchical frame has (symbol, field) columns.
// Missing values are NaN.
type RawFrame struct {
	Symbol       string
	Hierarchical bool
	Index        []time.Time
	Columns      []ColumnKey
	Data         [][]float64
}

// NewFlatFrame creates an empty single-symbol frame over index.
func NewFlatFrame(symbol string, index []time.Time) *RawFrame {
	return &RawFrame{Symbol: symbol, Index: index}
}

// NewFrame creates an empty two-level frame over index.
func NewFrame(index []time.Time) *RawFrame {
	return &RawFrame{Hierarchical: true, Index: index}
}

// Len returns the number of rows.
func (f *RawFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Empty reports whether the frame has no rows or no columns.
func (f *RawFrame) Empty() bool {
	return f == nil || len(f.Index) == 0 || len(f.Columns) == 0
}

// AddColumn appends a column. values must align with Index.
func (f *RawFrame) AddColumn(key ColumnKey, values []float64) {
	f.Columns = append(f.Columns, key)
	f.Data = append(f.Data, values)
}

// Column returns the values stored under key.
func (f *RawFrame) Column(key ColumnKey) ([]float64, bool) {
	if f == nil {
		return nil, false
	}
	for i, c := range f.Columns {
		if c == key {
			return f.Data[i], true
		}
	}
	return nil, false
}

// Symbols lists the distinct symbols in column order.
func (f *RawFrame) Symbols() []string {
	if f == nil {
		return nil
	}
	if !f.Hierarchical {
		if f.Symbol == "" || len(f.Columns) == 0 {
			return nil
		}
		return []string{f.Symbol}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, c := range f.Columns {
		if _, ok := seen[c.Symbol]; ok {
			continue
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c.Symbol)
	}
	return out
}

// ColumnNames renders every column key, used in structural error messages.
func (f *RawFrame) ColumnNames() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.String()
	}
	return out
}

// Promote returns a hierarchical view of a flat frame. Hierarchical frames
// are returned unchanged.
func (f *RawFrame) Promote() *RawFrame {
	if f == nil || f.Hierarchical {
		return f
	}
	out := NewFrame(f.Index)
	for i, c := range f.Columns {
		out.AddColumn(ColumnKey{Symbol: f.Symbol, Field: c.Field}, f.Data[i])
	}
	return out
}

// ConcatColumns joins frames column-wise over the union of their indices.
// A single flat input is returned as is; otherwise every input is promoted.
// Dates absent from a frame become NaN in that frame's columns.
func ConcatColumns(frames ...*RawFrame) *RawFrame {
	var parts []*RawFrame
	for _, f := range frames {
		if !f.Empty() {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return NewFrame(nil)
	case 1:
		return parts[0]
	}

	set := make(map[int64]struct{})
	for _, p := range parts {
		for _, t := range p.Index {
			set[t.Unix()] = struct{}{}
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

	out := NewFrame(index)
	for _, p := range parts {
		p = p.Promote()
		for ci, key := range p.Columns {
			col := nanSlice(len(index))
			for ri, t := range p.Index {
				col[pos[t.Unix()]] = p.Data[ci][ri]
			}
			out.AddColumn(key, col)
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

type frameJSON struct {
	Symbol       string       `json:"symbol,omitempty"`
	Hierarchical bool         `json:"hierarchical"`
	Index        []time.Time  `json:"index"`
	Columns      []ColumnKey  `json:"columns"`
	Data         [][]*float64 `json:"data"`
}

// MarshalJSON encodes NaN cells as null.
func (f *RawFrame) MarshalJSON() ([]byte, error) {
	enc := frameJSON{Symbol: f.Symbol, Hierarchical: f.Hierarchical, Index: f.Index, Columns: f.Columns}
	enc.Data = make([][]*float64, len(f.Data))
	for i, col := range f.Data {
		out := make([]*float64, len(col))
		for j := range col {
			if !math.IsNaN(col[j]) {
				v := col[j]
				out[j] = &v
			}
		}
		enc.Data[i] = out
	}
	return json.Marshal(enc)
}

// UnmarshalJSON decodes null cells as NaN.
func (f *RawFrame) UnmarshalJSON(b []byte) error {
	var dec frameJSON
	if err := json.Unmarshal(b, &dec); err != nil {
		return err
	}
	f.Symbol, f.Hierarchical, f.Index, f.Columns = dec.Symbol, dec.Hierarchical, dec.Index, dec.Columns
	f.Data = make([][]float64, len(dec.Data))
	for i, col := range dec.Data {
		out := make([]float64, len(col))
		for j, v := range col {
			if v == nil {
				out[j] = math.NaN()
			} else {
				out[j] = *v
			}
		}
		f.Data[i] = out
	}
	return nil
}

// BatchResult is the outcome of a batched download: the combined frame and
// the symbols that produced no data.
type BatchResult struct {
	Frame     *RawFrame `json:"frame"`
	Requested []string  `json:"requested"`
	Failed    []string  `json:"failed"`
}

// Succeeded lists requested symbols that did not fail.
func (r *BatchResult) Succeeded() []string {
	failed := make(map[string]struct{}, len(r.Failed))
	for _, s := range r.Failed {
		failed[s] = struct{}{}
	}
	var out []string
	for _, s := range r.Requested {
		if _, ok := failed[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
