// Package api serves the indexer's operational endpoints: Prometheus
// metrics, health, and progress introspection. It does not serve indexed
// data; queries go straight to the database.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"marketindexer/internal/storage"
)

// Server is the operational HTTP server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	repository storage.Repository
	processor  string
}

// NewServer creates a Server listening on addr. The repository backs the
// health and status handlers; processor names the progress cursor reported
// by /status.
func NewServer(addr string, repository storage.Repository, processor string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		repository: repository,
		processor:  processor,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", s.handleMetrics())
}

// Start runs the listener in a goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		slog.Info("Ops server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Ops server failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
