package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultRatePerSecond = 10
	defaultRateBurst     = 20
)

// ServerConfig carries everything the HTTP surface depends on. Answer
// and Logger are required; the rest degrade gracefully when absent so
// tests can stand up a server with only the pieces under test.
type ServerConfig struct {
	Logger   *slog.Logger
	Answerer Answerer

	// History enables exchange persistence and the session/feedback
	// endpoints. Nil disables persistence; answers still flow.
	History HistoryStore

	// Translator enables POST /api/v1/translate.
	Translator Translator

	// Index and Embedder back the detailed health endpoint.
	Index    IndexProbe
	Embedder EmbedProbe

	// Pool backs the readiness probe.
	Pool *pgxpool.Pool

	CORSOrigins []string
	TrustProxy  bool

	// RatePerSecond and RateBurst shape the per-IP token bucket.
	// Zero values take the defaults.
	RatePerSecond float64
	RateBurst     int
}

// Server is the assembled HTTP handler tree.
type Server struct {
	handler http.Handler
}

// NewServer wires the REST routes and middleware. Probes (/health,
// /ready) sit outside the middleware stack so load balancers are never
// rate limited or logged per hit.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if cfg.Answerer == nil {
		return nil, errors.New("api: answerer is required")
	}

	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	mux := http.NewServeMux()

	ask := &askHandler{answerer: cfg.Answerer, history: cfg.History, logger: cfg.Logger}
	mux.HandleFunc("POST /api/v1/ask", ask.ask)

	if cfg.History != nil {
		hist := &historyHandler{store: cfg.History, logger: cfg.Logger}
		mux.HandleFunc("GET /api/v1/sessions/{id}/messages", hist.messages)
		mux.HandleFunc("POST /api/v1/feedback", hist.feedback)
	}

	if cfg.Translator != nil {
		tr := &translateHandler{translator: cfg.Translator, logger: cfg.Logger}
		mux.HandleFunc("POST /api/v1/translate", tr.translate)
	}

	hh := &healthHandler{index: cfg.Index, embedder: cfg.Embedder, logger: cfg.Logger}
	mux.HandleFunc("GET /api/v1/health", hh.health)

	limiter := newRateLimiter(cfg.RatePerSecond, cfg.RateBurst)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(limiter, cfg.TrustProxy, cfg.Logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(cfg.Logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(cfg.Logger)(handler)

	top := http.NewServeMux()
	top.HandleFunc("GET /health", liveness)
	top.Handle("GET /ready", readiness(cfg.Pool))
	top.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	}))

	return &Server{handler: top}, nil
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
