// Package httpapi exposes the read side of the pipeline over HTTP: cache
// snapshots with filtering, per-hazard statistics, viewport clustering, and
// subscriber profile management, plus the usual health/readiness/metrics
// endpoints. Map and chart rendering happen client-side; this API only serves
// the data they bind to.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hazardwatch/internal/alert"
	"hazardwatch/internal/config"
	"hazardwatch/internal/scheduler"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the pipeline's HTTP surface.
type Server struct {
	httpServer *http.Server
	sched      *scheduler.Scheduler
	subs       *alert.Registry
	cfg        *config.Config
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(addr string, sched *scheduler.Scheduler, subs *alert.Registry, ready ReadinessChecker, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		sched:    sched,
		subs:     subs,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/hazards/{type}", func(r chi.Router) {
			r.Get("/", s.handleHazardRecords)
			r.Get("/stats", s.handleHazardStats)
			r.Get("/clusters", s.handleHazardClusters)
		})
		r.Route("/subscribers/{id}", func(r chi.Router) {
			r.Put("/", s.handleSubscriberUpsert)
			r.Delete("/", s.handleSubscriberDelete)
		})
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
