// Package api serves marks analyses over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"gaussfit/app"
	"gaussfit/internal"
)

// Request limits
const (
	MaxBodyBytes  = 8 << 20
	MaxStored     = 1000
	acquireWindow = 30 * time.Second
)

// Analyzer runs one analysis; app.AnalysisService satisfies it
type Analyzer interface {
	Run(title string, tokens []string, opts app.Options) (*app.Analysis, error)
}

// Server is the HTTP collaborator
type Server struct {
	router   *chi.Mux
	analyzer Analyzer
	store    *Store
	sem      *semaphore.Weighted // bounds concurrently running analyses
	defaults app.Options
	logger   *internal.Logger
}

// NewServer wires routes and middleware around an analyzer
func NewServer(analyzer Analyzer, defaults app.Options, maxConcurrent int, logger *internal.Logger) *Server {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:   chi.NewRouter(),
		analyzer: analyzer,
		store:    NewStore(MaxStored),
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		defaults: defaults,
		logger:   logger.With("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(2 * acquireWindow))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/analyses", func(r chi.Router) {
		r.Post("/", s.handleCreateAnalysis)
		r.Get("/{id}", s.handleGetAnalysis)
		r.Get("/{id}/report", s.handleReport)
		r.Get("/{id}/report.xlsx", s.handleReportXLSX)
	})
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the in-memory analysis store
func (s *Server) Store() *Store {
	return s.store
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
