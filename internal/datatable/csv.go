package datatable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Timestamp layouts accepted in CSV input, tried in order
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ReadCSV reads a consumption table from CSV with a header row:
// source,timestamp,actual,goal,warning. Consumption values are kept as the
// raw strings so that non-numeric data is reported when a row is rendered.
func ReadCSV(r io.Reader) (*Memory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = len(ConsumptionColumns())

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading CSV header: empty input")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	t := New(ConsumptionColumns()...)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		ts, err := parseCSVTime(record[1])
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp on line %d: %w", line, err)
		}

		t.rows = append(t.rows, []any{
			strings.TrimSpace(record[0]),
			ts,
			record[2],
			record[3],
			record[4],
		})
	}

	return t, nil
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
