package frame

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
)

var nan = math.NaN()

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func sampleFrame() *models.RawFrame {
	f := models.NewFrame(days(3))
	f.AddColumn(models.ColumnKey{Symbol: "AAA", Field: models.FieldClose}, []float64{1, 2, 3})
	f.AddColumn(models.ColumnKey{Symbol: "AAA", Field: models.FieldOpen}, []float64{1, 2, 3})
	f.AddColumn(models.ColumnKey{Symbol: "BBB", Field: models.FieldClose}, []float64{4, nan, 6})
	f.AddColumn(models.ColumnKey{Symbol: "CCC", Field: models.FieldClose}, []float64{nan, nan, nan})
	return f
}

func TestExtractFieldLenientKeepsPartialColumns(t *testing.T) {
	table, err := ExtractField(sampleFrame(), models.FieldClose, DropAllMissing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Symbols, []string{"AAA", "BBB"}) {
		t.Fatalf("unexpected symbols %v", table.Symbols)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
}

func TestExtractFieldStrictDropsPartialColumns(t *testing.T) {
	table, err := ExtractField(sampleFrame(), models.FieldClose, DropAnyMissing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Symbols, []string{"AAA"}) {
		t.Fatalf("unexpected symbols %v", table.Symbols)
	}
}

func TestExtractFieldRowPolicy(t *testing.T) {
	table, err := ExtractField(sampleFrame(), models.FieldClose, DropRowsAnyMissing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 2 || len(table.Symbols) != 2 {
		t.Fatalf("expected 2 rows x 2 symbols, got %d x %d", table.Len(), len(table.Symbols))
	}
	if !table.Dates[1].Equal(days(3)[2]) {
		t.Fatalf("unexpected dates %v", table.Dates)
	}
}

func TestExtractFieldNeverReturnsAllMissingColumn(t *testing.T) {
	for _, p := range []Policy{DropAllMissing, DropAnyMissing, DropRowsAnyMissing} {
		table, err := ExtractField(sampleFrame(), models.FieldClose, p)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		for j, col := range table.Values {
			if countMissing(col) == len(col) {
				t.Fatalf("%s: column %s is all missing", p, table.Symbols[j])
			}
		}
	}
}

func TestExtractFieldFlatFrame(t *testing.T) {
	f := models.NewFlatFrame("XBI", days(2))
	f.AddColumn(models.ColumnKey{Field: models.FieldOpen}, []float64{9, 10})
	f.AddColumn(models.ColumnKey{Field: models.FieldClose}, []float64{10, 11})
	table, err := ExtractField(f, models.FieldClose, DropAnyMissing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col, ok := table.Column("XBI")
	if !ok || col[1] != 11 {
		t.Fatalf("unexpected column %v", col)
	}
}

func TestExtractFieldMissingFieldIsStructural(t *testing.T) {
	f := models.NewFlatFrame("XBI", days(2))
	f.AddColumn(models.ColumnKey{Field: models.FieldOpen}, []float64{9, 10})
	_, err := ExtractField(f, models.FieldClose, DropAllMissing)
	var se *domain.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Open") {
		t.Fatalf("error should list observed columns: %v", err)
	}
}

func TestExtractFieldEmptyFrame(t *testing.T) {
	table, err := ExtractField(models.NewFrame(nil), models.FieldClose, DropAllMissing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.Empty() {
		t.Fatalf("expected empty table")
	}
}

func TestSeriesUnknownSymbol(t *testing.T) {
	_, err := Series(sampleFrame(), "ZZZ", models.FieldClose)
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
