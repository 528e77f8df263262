package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
)

// WriteCSV writes t as a header row followed by its records.
func WriteCSV(w io.Writer, t models.Tabular) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// ReadReturnsCSV parses a table written by WriteCSV from a ReturnsTable.
// Period lengths are recovered from the known labels; unknown labels keep
// a zero length. The benchmark flag is not part of the export.
func ReadReturnsCSV(r io.Reader) (*models.ReturnsTable, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 || !strings.EqualFold(records[0][0], "Ticker") {
		return nil, &domain.ValidationError{Source: "returns csv", Reason: "missing Ticker header"}
	}
	known := make(map[string]int, len(models.DefaultPeriods))
	for _, p := range models.DefaultPeriods {
		known[p.Label] = p.Days
	}
	out := &models.ReturnsTable{}
	for _, label := range records[0][1:] {
		out.Periods = append(out.Periods, models.Period{Label: label, Days: known[label]})
	}
	for line, rec := range records[1:] {
		row := models.ReturnsRow{Symbol: rec[0], Returns: make(map[string]float64)}
		for i, cell := range rec[1:] {
			if cell == "" || i >= len(out.Periods) {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line+2, out.Periods[i].Label, err)
			}
			row.Returns[out.Periods[i].Label] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
