package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/pkg/models"
)

var listSource string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored consumption readings",
	Long: `Displays the latest reading of every source with its goal status, or the full
history of one source with --source.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listSource, "source", "", "Show every stored reading of this source")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	// Timestamps are shown as the widget shows them
	dates, err := datatable.NewDateFormat(cfg.WidgetOptions().DatePattern)
	if err != nil {
		return fmt.Errorf("widget date pattern: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var data []models.ConsumptionRecord
	if listSource != "" {
		data, err = db.ListRecords(cmd.Context(), listSource)
	} else {
		data, err = db.LatestRecords(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	if len(data) == 0 {
		if listSource != "" {
			fmt.Printf("No data found for %s\n", listSource)
		} else {
			fmt.Println("No data found")
		}
		return nil
	}

	if listSource != "" {
		fmt.Printf("\n%s Consumption History:\n", listSource)
	} else {
		fmt.Printf("\nLatest Consumption:\n")
	}
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("%-20s  %-22s  %10s  %10s  %10s  %-10s\n", "Source", dates.Pattern(), "Actual", "Goal", "Warning", "Status")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, rec := range data {
		fmt.Printf("%-20s  %-22s  %10s  %10s  %10s  %-10s\n",
			rec.Source,
			dates.Format(rec.Timestamp),
			humanize.Comma(int64(rec.Actual)),
			humanize.Comma(int64(rec.Goal)),
			humanize.Comma(int64(rec.Warning)),
			rec.Classify(),
		)
	}

	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("%d records\n", len(data))

	return nil
}
