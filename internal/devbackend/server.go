// Package devbackend is a local stand-in for the analytics backend. It
// serves the same endpoints the API client calls, backed by a SQL store.
package devbackend

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"datapilot/adapters/db"
	"datapilot/adapters/export"
	"datapilot/ai"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// previewRows is how many rows upload and preview responses carry
const previewRows = 20

// maxUploadBytes bounds multipart parsing
const maxUploadBytes = 50 << 20

// Server is the development analytics backend
type Server struct {
	router   *chi.Mux
	store    *db.Store
	insights *ai.InsightGenerator
	exporter *export.Exporter
}

// Option configures a Server
type Option func(*Server)

// WithInsightGenerator answers AI questions with a language model instead of
// the templated answer
func WithInsightGenerator(g *ai.InsightGenerator) Option {
	return func(s *Server) { s.insights = g }
}

// New creates a server over a migrated store
func New(store *db.Store, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		exporter: export.NewExporter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the backend endpoints
func (s *Server) setupRoutes() {
	s.router.Post("/upload/{role}", s.handleUpload)
	s.router.Post("/clean/{role}", s.handleClean)
	s.router.Post("/analyze/{role}/{task}", s.handleAnalyze)
	s.router.Post("/ai-insight/{role}", s.handleInsight)
	s.router.Get("/report/{role}", s.handleReport)
	s.router.Get("/download-chart/{chartId}", s.handleDownloadChart)
	s.router.Get("/preview/{role}", s.handlePreview)
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[DevBackend] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("[DevBackend] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
