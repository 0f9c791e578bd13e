package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const probeTimeout = 5 * time.Second

// IndexProbe checks that the vector index answers queries. Implemented
// by index.Store.
type IndexProbe interface {
	Count(ctx context.Context) (int64, error)
}

// EmbedProbe checks that the embedding backend answers. Implemented by
// embedding.GenkitProvider.
type EmbedProbe interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type healthHandler struct {
	index    IndexProbe
	embedder EmbedProbe
	logger   *slog.Logger
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness reports whether the database is reachable. Load balancers
// use it to gate traffic, so it stays cheap: one ping, no model calls.
func readiness(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "database not configured")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// health probes every dependency the answer pipeline needs and reports
// per-component state. Degraded still serves 503 so orchestrators can
// route around a half-working instance.
func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"index":    h.probeIndex(r.Context()),
		"embedder": h.probeEmbedder(r.Context()),
	}

	status := "ok"
	code := http.StatusOK
	for _, state := range components {
		if state != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, code, healthResponse{Status: status, Components: components})
}

func (h *healthHandler) probeIndex(ctx context.Context) string {
	if h.index == nil {
		return "error"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := h.index.Count(ctx); err != nil {
		h.logger.Warn("index health probe failed", "error", err)
		return "error"
	}
	return "ok"
}

func (h *healthHandler) probeEmbedder(ctx context.Context) string {
	if h.embedder == nil {
		return "error"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := h.embedder.Embed(ctx, "test"); err != nil {
		h.logger.Warn("embedder health probe failed", "error", err)
		return "error"
	}
	return "ok"
}
