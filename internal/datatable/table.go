// Package datatable provides the tabular data source the energy goal widget
// reads from: an in-memory table modeled on the Google Visualization
// DataTable, loaders for gviz JSON and CSV, and date pattern formatting.
package datatable

import (
	"errors"
	"fmt"

	"github.com/jgoulah/energygoal/pkg/models"
)

// ErrOutOfRange is returned when a cell outside the table is requested
var ErrOutOfRange = errors.New("cell out of range")

// ColumnType is the declared type of a column
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeNumber   ColumnType = "number"
	TypeBoolean  ColumnType = "boolean"
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
)

// Column describes one table column
type Column struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Type  ColumnType `json:"type"`
}

// Table is the read-only view of a data table
type Table interface {
	NumberOfRows() int
	NumberOfColumns() int
	Value(row, col int) (any, error)
}

// ConsumptionColumns returns the column layout of an energy goal table:
// source, timestamp, actual, goal and warning consumption.
func ConsumptionColumns() []Column {
	return []Column{
		{ID: "A", Label: "Source", Type: TypeString},
		{ID: "B", Label: "Last Update", Type: TypeDateTime},
		{ID: "C", Label: "Actual Consumption", Type: TypeNumber},
		{ID: "D", Label: "Goal Consumption", Type: TypeNumber},
		{ID: "E", Label: "Warning Consumption", Type: TypeNumber},
	}
}

// Memory is an in-memory Table
type Memory struct {
	cols []Column
	rows [][]any
}

// New creates an empty table with the given columns
func New(cols ...Column) *Memory {
	return &Memory{cols: cols}
}

// FromRecords builds a consumption table with one row per record, in order
func FromRecords(records []models.ConsumptionRecord) *Memory {
	t := New(ConsumptionColumns()...)
	for _, r := range records {
		t.rows = append(t.rows, []any{r.Source, r.Timestamp, r.Actual, r.Goal, r.Warning})
	}
	return t
}

// AddRow appends a row. The number of values must match the number of columns.
func (t *Memory) AddRow(values ...any) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.cols))
	}
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Columns returns a copy of the column descriptions
func (t *Memory) Columns() []Column {
	cols := make([]Column, len(t.cols))
	copy(cols, t.cols)
	return cols
}

func (t *Memory) NumberOfRows() int    { return len(t.rows) }
func (t *Memory) NumberOfColumns() int { return len(t.cols) }

// Value returns the raw value of a cell. Empty cells are nil.
func (t *Memory) Value(row, col int) (any, error) {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.cols) {
		return nil, fmt.Errorf("cell (%d, %d): %w", row, col, ErrOutOfRange)
	}
	return t.rows[row][col], nil
}
