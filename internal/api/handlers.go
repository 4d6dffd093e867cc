package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex lists the available endpoints.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"service": "marketplace-indexer",
		"endpoints": map[string]string{
			"GET /health":  "Health check, pings the database",
			"GET /status":  "Progress cursor and chain identity",
			"GET /metrics": "Prometheus metrics",
		},
	})
}

// handleHealth reports liveness. Unhealthy means the database is
// unreachable; the indexing loop is likely stalled too.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repository.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		s.sendJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleStatus reports the persisted progress cursor and chain id.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]any{"processor": s.processor}

	version, found, err := s.repository.LastSuccessVersion(ctx, s.processor)
	if err != nil {
		slog.Error("Failed to read progress cursor", "error", err)
		s.sendJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if found {
		status["last_success_version"] = version
	}

	chainID, found, err := s.repository.ChainID(ctx)
	if err != nil {
		slog.Error("Failed to read chain id", "error", err)
		s.sendJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if found {
		status["chain_id"] = chainID
	}

	s.sendJSON(w, http.StatusOK, status)
}

// handleMetrics exposes the Prometheus scrape endpoint.
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
