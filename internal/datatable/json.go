package datatable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// gviz responses embed JavaScript date constructors, which are not JSON
	jsDatePattern = regexp.MustCompile(`new Date\(([0-9,\s]*)\)`)
	dateValue     = regexp.MustCompile(`^Date\(([0-9,\s]*)\)$`)
)

const responsePrefix = "google.visualization.Query.setResponse("

type jsonCell struct {
	V json.RawMessage `json:"v"`
	F string          `json:"f,omitempty"`
}

type jsonRow struct {
	C []*jsonCell `json:"c"`
}

type jsonTable struct {
	Cols []Column  `json:"cols"`
	Rows []jsonRow `json:"rows"`
}

type jsonResponse struct {
	Status string     `json:"status"`
	Table  *jsonTable `json:"table"`
}

// ParseJSON parses a Google Visualization DataTable. It accepts a bare
// {"cols": ..., "rows": ...} object, a query response object carrying it in
// "table", and the setResponse(...) JavaScript wrapper around either.
func ParseJSON(data []byte) (*Memory, error) {
	data = bytes.TrimSpace(data)
	if rest, ok := bytes.CutPrefix(data, []byte(responsePrefix)); ok {
		rest = bytes.TrimSuffix(rest, []byte(";"))
		data = bytes.TrimSuffix(rest, []byte(")"))
	}
	data = jsDatePattern.ReplaceAll(data, []byte(`"Date($1)"`))

	var raw struct {
		jsonTable
		jsonResponse
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding data table: %w", err)
	}

	jt := &raw.jsonTable
	if raw.Table != nil {
		if raw.Status != "" && raw.Status != "ok" {
			return nil, fmt.Errorf("data table response status %q", raw.Status)
		}
		jt = raw.Table
	}
	if len(jt.Cols) == 0 {
		return nil, fmt.Errorf("data table has no columns")
	}

	t := New(jt.Cols...)
	for i, r := range jt.Rows {
		values := make([]any, len(jt.Cols))
		for j, cell := range r.C {
			if j >= len(jt.Cols) {
				return nil, fmt.Errorf("row %d has more cells than columns", i)
			}
			v, err := decodeCell(cell, jt.Cols[j].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			values[j] = v
		}
		t.rows = append(t.rows, values)
	}

	return t, nil
}

func decodeCell(cell *jsonCell, typ ColumnType) (any, error) {
	if cell == nil || len(cell.V) == 0 || string(cell.V) == "null" {
		return nil, nil
	}

	switch typ {
	case TypeDate, TypeDateTime:
		var s string
		if err := json.Unmarshal(cell.V, &s); err != nil {
			return nil, fmt.Errorf("date cell: %w", err)
		}
		return parseDateValue(s)
	case TypeNumber:
		var n json.Number
		if err := json.Unmarshal(cell.V, &n); err != nil {
			// Numbers quoted as strings are kept as-is and validated by the reader
			var s string
			if err := json.Unmarshal(cell.V, &s); err != nil {
				return nil, fmt.Errorf("number cell: %w", err)
			}
			return s, nil
		}
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		return n.Float64()
	default:
		var v any
		if err := json.Unmarshal(cell.V, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// parseDateValue parses "Date(y,m,d[,h,mi,s[,ms]])" with a zero-based month,
// falling back to RFC 3339.
func parseDateValue(s string) (time.Time, error) {
	m := dateValue.FindStringSubmatch(s)
	if m == nil {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date value %q", s)
		}
		return t, nil
	}

	parts := strings.Split(m[1], ",")
	if len(parts) < 3 || len(parts) > 7 {
		return time.Time{}, fmt.Errorf("invalid date value %q", s)
	}
	fields := make([]int, 7)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date value %q", s)
		}
		fields[i] = n
	}

	return time.Date(fields[0], time.Month(fields[1]+1), fields[2],
		fields[3], fields[4], fields[5], fields[6]*int(time.Millisecond), time.UTC), nil
}
