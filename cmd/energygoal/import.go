package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energygoal/internal/widget"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import consumption readings into the database",
	Long: `Reads consumption tables from CSV or gviz JSON files and stores every valid
row in the database. Rows already stored for the same source and timestamp are
skipped; invalid rows are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "", "Input format: csv or json (default: from file extension)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	for _, path := range args {
		table, err := readTableFile(path, importFormat)
		if err != nil {
			return err
		}

		var inserted, duplicates, invalid int
		for row := 0; row < table.NumberOfRows(); row++ {
			rec, err := widget.RecordAt(table, row)
			if err != nil {
				logger.Warn("skipping row", "file", path, "row", row, "error", err)
				invalid++
				continue
			}

			ok, err := db.InsertRecord(ctx, rec)
			if err != nil {
				return fmt.Errorf("storing %s row %d: %w", path, row, err)
			}
			if ok {
				inserted++
			} else {
				duplicates++
			}
		}

		fmt.Printf("%s: imported %d records (%d already stored, %d invalid)\n", path, inserted, duplicates, invalid)
	}

	return nil
}
