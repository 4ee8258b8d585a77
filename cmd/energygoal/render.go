package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energygoal/internal/config"
	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/internal/publisher"
	"github.com/jgoulah/energygoal/internal/sink"
	"github.com/jgoulah/energygoal/internal/widget"
)

const defaultContainer = "energy-goal"

var (
	renderInput      string
	renderFormat     string
	renderPage       string
	renderURL        string
	renderContainer  string
	renderScreenshot string
	renderSavePage   string
	renderVisible    bool
	renderPublish    bool
)

var renderCmd = &cobra.Command{
	Use:   "render <source>",
	Short: "Render the energy goal widget for a source",
	Long: `Renders the stoplight widget for a source and writes it into a container
element. By default the table is the latest stored reading of every source and
the widget is printed to stdout.

Targets:
  --page file.html   replace the container's content in an HTML file
  --url URL          replace it in a page loaded in headless Chrome, optionally
                     saving a --screenshot of the widget or the --save-page HTML`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderInput, "input", "", "Read the table from a CSV or JSON file instead of the database")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Input format: csv or json (default: from file extension)")
	renderCmd.Flags().StringVar(&renderPage, "page", "", "HTML file whose container is replaced")
	renderCmd.Flags().StringVar(&renderURL, "url", "", "Page to load in Chrome and render into")
	renderCmd.Flags().StringVar(&renderContainer, "container", defaultContainer, "Id of the container element")
	renderCmd.Flags().StringVar(&renderScreenshot, "screenshot", "", "Save a PNG of the rendered container (with --url)")
	renderCmd.Flags().StringVar(&renderSavePage, "save-page", "", "Save the page HTML after rendering (with --url)")
	renderCmd.Flags().BoolVar(&renderVisible, "visible", false, "Show the browser window (with --url)")
	renderCmd.Flags().BoolVar(&renderPublish, "publish", false, "Also publish the widget status to MQTT/Home Assistant")
	renderCmd.MarkFlagsMutuallyExclusive("page", "url")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	source := args[0]
	if (renderScreenshot != "" || renderSavePage != "") && renderURL == "" {
		return fmt.Errorf("--screenshot and --save-page require --url")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	table, err := loadTable(ctx, cfg)
	if err != nil {
		return err
	}

	renderer, err := widget.New(cfg.WidgetOptions(), logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	var res *widget.Result
	switch {
	case renderPage != "":
		doc := sink.NewDocument(renderPage)
		res, err = renderer.Render(ctx, doc, renderContainer, source, table)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", source, err)
		}
		fmt.Printf("Rendered %s into #%s of %s (%s)\n", source, renderContainer, doc.Path(), res.Status)

	case renderURL != "":
		res, err = renderInBrowser(ctx, cfg, renderer, source, table)
		if err != nil {
			return err
		}

	default:
		mem := sink.NewMemory(renderContainer)
		res, err = renderer.Render(ctx, mem, renderContainer, source, table)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", source, err)
		}
		content, _ := mem.Content(renderContainer)
		fmt.Println(content)
	}

	if renderPublish {
		return publishResults(ctx, cfg, logger, []*widget.Result{res})
	}
	return nil
}

// loadTable reads the --input file, or the latest stored readings
func loadTable(ctx context.Context, cfg *config.Config) (datatable.Table, error) {
	if renderInput != "" {
		return readTableFile(renderInput, renderFormat)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	table, err := db.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading table: %w", err)
	}
	return table, nil
}

func renderInBrowser(ctx context.Context, cfg *config.Config, renderer *widget.Renderer, source string, table datatable.Table) (*widget.Result, error) {
	fmt.Printf("Loading %s in Chrome...\n", renderURL)
	browser, err := sink.NewBrowser(ctx, renderURL, sink.BrowserOptions{
		Visible: renderVisible || cfg.Browser.Visible,
		Timeout: cfg.GetBrowserTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer browser.Close()

	res, err := renderer.Render(ctx, browser, renderContainer, source, table)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", source, err)
	}
	fmt.Printf("Rendered %s into #%s (%s)\n", source, renderContainer, res.Status)

	if renderScreenshot != "" {
		png, err := browser.Screenshot(ctx, renderContainer)
		if err != nil {
			return nil, fmt.Errorf("capturing screenshot: %w", err)
		}
		if err := os.WriteFile(renderScreenshot, png, 0644); err != nil {
			return nil, fmt.Errorf("writing screenshot: %w", err)
		}
		fmt.Printf("Screenshot saved to %s\n", renderScreenshot)
	}

	if renderSavePage != "" {
		html, err := browser.DocumentHTML(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading page: %w", err)
		}
		if err := os.WriteFile(renderSavePage, []byte(html), 0644); err != nil {
			return nil, fmt.Errorf("writing page: %w", err)
		}
		fmt.Printf("Page saved to %s\n", renderSavePage)
	}

	return res, nil
}

// publishResults sends each rendered widget status to the configured targets
func publishResults(ctx context.Context, cfg *config.Config, logger *slog.Logger, results []*widget.Result) error {
	pub, err := publisher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	if !pub.Enabled() {
		return fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
	}

	var failed int
	for _, res := range results {
		if err := pub.Publish(ctx, res); err != nil {
			logger.Error("publish failed", "source", res.Record.Source, "error", err)
			failed++
			continue
		}
		fmt.Printf("✓ Published %s: %s (%d/%d kWh)\n", res.Record.Source, res.Status, res.Record.Actual, res.Record.Goal)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d publishes failed", failed, len(results))
	}
	return nil
}
