package models

import (
	"fmt"
	"strings"
	"time"
)

// Field names one OHLCV column of a provider frame.
type Field string

const (
	FieldOpen     Field = "Open"
	FieldHigh     Field = "High"
	FieldLow      Field = "Low"
	FieldClose    Field = "Close"
	FieldAdjClose Field = "Adj Close"
	FieldVolume   Field = "Volume"
)

// Fields lists the columns a provider may emit, in provider order.
var Fields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose, FieldVolume}

// ParseField resolves a field name case-insensitively ("close", "adj_close", "Adj Close").
func ParseField(s string) (Field, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	for _, f := range Fields {
		if strings.ToLower(string(f)) == norm {
			return f, nil
		}
	}
	if norm == "adjclose" {
		return FieldAdjClose, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Bar is one OHLCV observation of a single symbol.
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
}

// Value returns the bar's value for f.
func (b Bar) Value(f Field) float64 {
	switch f {
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldAdjClose:
		return b.AdjClose
	case FieldVolume:
		return b.Volume
	default:
		return b.Close
	}
}

// Point is a dated scalar.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PriceSeries is a date-ordered sequence of values for a single symbol.
type PriceSeries struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int { return len(s.Points) }

// Values returns the raw values in date order.
func (s *PriceSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}
