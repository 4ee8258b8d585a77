package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energygoal/internal/observability"
	"github.com/jgoulah/energygoal/internal/server"
	"github.com/jgoulah/energygoal/internal/widget"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve widgets over HTTP",
	Long: `Starts an HTTP server that renders widgets from the latest stored readings:

  GET /widgets/{source}         widget HTML fragment
  GET /widgets/{source}/status  goal status as JSON
  GET /healthz, /readyz         liveness and database readiness
  GET /metrics                  Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	renderer, err := widget.New(cfg.WidgetOptions(), logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.GetServerAddr()
	}

	metrics := observability.NewMetrics()
	srv := server.NewServer(addr, renderer, db, metrics, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
