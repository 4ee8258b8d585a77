// Package widget renders the energy goal widget: actual and goal consumption
// so far today, a red/yellow/green stoplight and a caption, built from one
// row of a consumption data table.
package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/pkg/models"
)

var (
	// ErrRecordNotFound means no table row matches the source key
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidData means a row is malformed: a missing source, a
	// timestamp that is not a date or a non-numeric consumption value
	ErrInvalidData = errors.New("invalid data")
	// ErrSinkNotFound means the output container does not exist
	ErrSinkNotFound = errors.New("sink not found")
)

// Column positions in a consumption table
const (
	colSource = iota
	colTimestamp
	colActual
	colGoal
	colWarning
)

// Sink is a set of named containers whose content can be replaced
type Sink interface {
	Replace(ctx context.Context, containerID string, content template.HTML) error
}

// Result is a rendered widget
type Result struct {
	Record    models.ConsumptionRecord
	Status    models.Status
	Caption   string
	LastCheck string
	HTML      template.HTML
}

// Renderer renders widgets with a fixed set of options. It holds no mutable
// state and may be shared between goroutines.
type Renderer struct {
	opts   Options
	dates  datatable.DateFormat
	logger *slog.Logger
}

// New creates a renderer, applying defaults to opts and validating them
func New(opts Options, logger *slog.Logger) (*Renderer, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid widget options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	dates, err := datatable.NewDateFormat(opts.DatePattern)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, dates: dates, logger: logger}, nil
}

// Render is a one-shot helper that builds a Renderer from opts and renders
// into the sink's container.
func Render(ctx context.Context, sink Sink, containerID, sourceKey string, table datatable.Table, opts Options) error {
	r, err := New(opts, nil)
	if err != nil {
		return err
	}
	_, err = r.Render(ctx, sink, containerID, sourceKey, table)
	return err
}

// Options returns the effective options
func (r *Renderer) Options() Options {
	return r.opts
}

// Render builds the widget for sourceKey and makes it the sole content of
// the container. Nothing is written unless the widget was built.
func (r *Renderer) Render(ctx context.Context, sink Sink, containerID, sourceKey string, table datatable.Table) (*Result, error) {
	res, err := r.Fragment(sourceKey, table)
	if err != nil {
		return nil, err
	}

	if err := sink.Replace(ctx, containerID, res.HTML); err != nil {
		return nil, fmt.Errorf("writing widget to %q: %w", containerID, err)
	}

	r.logger.Debug("rendered energy goal widget",
		"container", containerID,
		"source", sourceKey,
		"status", res.Status.String(),
	)
	return res, nil
}

// Fragment builds the widget HTML for sourceKey without writing it anywhere
func (r *Renderer) Fragment(sourceKey string, table datatable.Table) (*Result, error) {
	rec, err := ReadRecord(table, sourceKey)
	if err != nil {
		return nil, err
	}

	lastCheck := r.dates.Format(rec.Timestamp)
	status := rec.Classify()

	var buf bytes.Buffer
	if err := widgetTmpl.Execute(&buf, newView(r.opts, rec, status, lastCheck)); err != nil {
		return nil, fmt.Errorf("executing widget template: %w", err)
	}

	return &Result{
		Record:    rec,
		Status:    status,
		Caption:   Caption(r.opts.Subject, rec),
		LastCheck: lastCheck,
		HTML:      template.HTML(buf.String()),
	}, nil
}

// FindRow returns the index of the first row whose first column equals source
func FindRow(table datatable.Table, source string) (int, error) {
	for i := 0; i < table.NumberOfRows(); i++ {
		v, err := table.Value(i, colSource)
		if err != nil {
			return -1, err
		}
		if v != nil && fmt.Sprint(v) == source {
			return i, nil
		}
	}
	return -1, fmt.Errorf("source %q: %w", source, ErrRecordNotFound)
}

// ReadRecord locates source in the table and decodes its row
func ReadRecord(table datatable.Table, source string) (models.ConsumptionRecord, error) {
	if err := checkColumns(table); err != nil {
		return models.ConsumptionRecord{}, err
	}

	row, err := FindRow(table, source)
	if err != nil {
		return models.ConsumptionRecord{}, err
	}
	return RecordAt(table, row)
}

// RecordAt decodes the given row of a consumption table
func RecordAt(table datatable.Table, row int) (models.ConsumptionRecord, error) {
	if err := checkColumns(table); err != nil {
		return models.ConsumptionRecord{}, err
	}

	var rec models.ConsumptionRecord

	v, err := table.Value(row, colSource)
	if err != nil {
		return rec, err
	}
	if v == nil {
		return rec, fmt.Errorf("row %d has no source: %w", row, ErrInvalidData)
	}
	rec.Source = fmt.Sprint(v)

	v, err = table.Value(row, colTimestamp)
	if err != nil {
		return rec, err
	}
	var ok bool
	if rec.Timestamp, ok = v.(time.Time); !ok {
		return rec, fmt.Errorf("source %q timestamp %v: %w", rec.Source, v, ErrInvalidData)
	}

	fields := []struct {
		col  int
		name string
		dst  *int
	}{
		{colActual, "actual", &rec.Actual},
		{colGoal, "goal", &rec.Goal},
		{colWarning, "warning", &rec.Warning},
	}
	for _, f := range fields {
		v, err := table.Value(row, f.col)
		if err != nil {
			return rec, err
		}
		n, err := toInt(v)
		if err != nil {
			return rec, fmt.Errorf("source %q %s consumption: %v: %w", rec.Source, f.name, err, ErrInvalidData)
		}
		*f.dst = n
	}

	return rec, nil
}

func checkColumns(table datatable.Table) error {
	if table.NumberOfColumns() <= colWarning {
		return fmt.Errorf("table has %d columns, need %d: %w", table.NumberOfColumns(), colWarning+1, ErrInvalidData)
	}
	return nil
}

// toInt converts a cell to whole kWh, truncating fractions toward zero
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, errors.New("missing value")
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return floatToInt(f)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, fmt.Errorf("%d is out of range", u)
		}
		return int(u), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt || f < math.MinInt {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(math.Trunc(f)), nil
}
