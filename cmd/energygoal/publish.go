package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energygoal/internal/widget"
)

var publishSource string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish widget status to MQTT and Home Assistant",
	Long: `Renders the widget of every stored source (or one with --source) from its latest
reading and publishes the goal status, kWh values and caption to MQTT and/or the
Home Assistant HTTP API.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSource, "source", "", "Source to publish (default: all sources)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	renderer, err := widget.New(cfg.WidgetOptions(), logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	sources := []string{}
	if publishSource != "" {
		sources = append(sources, publishSource)
	} else {
		sources, err = db.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
	}

	if len(sources) == 0 {
		fmt.Println("No data found")
		return nil
	}

	table, err := db.Table(ctx)
	if err != nil {
		return fmt.Errorf("loading table: %w", err)
	}

	var results []*widget.Result
	for _, source := range sources {
		res, err := renderer.Fragment(source, table)
		if err != nil {
			logger.Warn("skipping source", "source", source, "error", err)
			continue
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		return fmt.Errorf("no source could be rendered")
	}

	fmt.Printf("Publishing %d sources...\n", len(results))
	return publishResults(ctx, cfg, logger, results)
}
