package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jgoulah/energygoal/internal/datatable"
)

// readTableFile loads a consumption table from a CSV or gviz JSON file.
// An empty format is taken from the file extension.
func readTableFile(path, format string) (datatable.Table, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	switch format {
	case "csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		table, err := datatable.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return table, nil

	case "json", "js":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		table, err := datatable.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return table, nil

	default:
		return nil, fmt.Errorf("unsupported table format %q (use csv or json)", format)
	}
}
