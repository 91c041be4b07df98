// Package server exposes the dashboard HTTP API: job submission, status
// polling, advisory counts, catalog listing, and a websocket status stream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tuneboard/tuneboard/internal/service"
)

// Server wraps the HTTP server with its dependencies and lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates the server and mounts all routes.
func New(addr string, lifecycle *service.Lifecycle, watchInterval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		lifecycle:     lifecycle,
		watchInterval: watchInterval,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(logger))

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/fine-tuning/jobs", h.launchJob)
		r.Get("/fine-tuning/jobs", h.listJobs)
		r.Get("/fine-tuning/jobs/{id}", h.jobStatus)
		r.Get("/fine-tuning/jobs/{id}/watch", h.watchJob)
		r.Get("/counts", h.counts)
		r.Get("/catalog", h.catalog)
		r.Get("/stats", h.stats)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting tuneboard server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
