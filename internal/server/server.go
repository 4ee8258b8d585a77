// Package server serves rendered energy goal widgets over HTTP, along with
// health, readiness and Prometheus metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/internal/observability"
	"github.com/jgoulah/energygoal/internal/widget"
)

// Store provides the consumption table widgets are rendered from
type Store interface {
	Table(ctx context.Context) (datatable.Table, error)
	Ping(ctx context.Context) error
}

// Server exposes widget, health, readiness and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	renderer   *widget.Renderer
	store      Store
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /widgets/{source}, /healthz, /readyz
// and /metrics routes.
func NewServer(addr string, renderer *widget.Renderer, store Store, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		renderer: renderer,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /widgets/{source}", s.handleWidget)
	mux.HandleFunc("GET /widgets/{source}/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	res, ok := s.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.HTML)) //nolint:errcheck // client went away
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, ok := s.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      res.Record.Source,
		"status":      res.Status.String(),
		"color":       res.Status.Color(),
		"actual_kwh":  res.Record.Actual,
		"goal_kwh":    res.Record.Goal,
		"warning_kwh": res.Record.Warning,
		"caption":     res.Caption,
		"last_check":  res.LastCheck,
	})
}

// render loads the table and builds the widget, writing an error response on failure
func (s *Server) render(w http.ResponseWriter, r *http.Request) (*widget.Result, bool) {
	start := time.Now()
	source := r.PathValue("source")

	table, err := s.store.Table(r.Context())
	if err != nil {
		s.fail(w, source, "internal", http.StatusInternalServerError, err)
		return nil, false
	}

	res, err := s.renderer.Fragment(source, table)
	switch {
	case errors.Is(err, widget.ErrRecordNotFound):
		s.fail(w, source, "not_found", http.StatusNotFound, err)
		return nil, false
	case errors.Is(err, widget.ErrInvalidData):
		s.fail(w, source, "invalid_data", http.StatusUnprocessableEntity, err)
		return nil, false
	case err != nil:
		s.fail(w, source, "internal", http.StatusInternalServerError, err)
		return nil, false
	}

	s.metrics.Renders.WithLabelValues(res.Status.String()).Inc()
	s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	return res, true
}

func (s *Server) fail(w http.ResponseWriter, source, reason string, status int, err error) {
	s.metrics.RenderErrors.WithLabelValues(reason).Inc()
	if status >= http.StatusInternalServerError {
		s.logger.Error("widget render failed", "source", source, "error", err)
	} else {
		s.logger.Warn("widget render rejected", "source", source, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
