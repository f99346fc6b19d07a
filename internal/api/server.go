// Package api exposes the ingestion and query pipelines as a JSON HTTP
// API. Routing uses net/http method patterns; rate limiting, request
// logging, and panic recovery wrap every pipeline route. Health probes
// sit outside the middleware stack so orchestrators are never rate
// limited away from them.
package api

import (
	"errors"
	"log/slog"
	"net/http"
)

// ServerConfig carries the dependencies for the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Ingestor  Ingestor      // Required
	Answerer  Answerer      // Required
	Embedder  QueryEmbedder // Required
	Reader    DocumentReader
	Pool      Pinger  // Optional: nil skips the database readiness check
	RateLimit float64 // Tokens per second per IP (0 = default 1)
	RateBurst int     // Burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires all routes and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dh := &documentHandler{ingestor: cfg.Ingestor, reader: cfg.Reader, logger: logger}
	qh := &queryHandler{answerer: cfg.Answerer, embedder: cfg.Embedder, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", dh.ingest)
	if cfg.Reader != nil {
		mux.HandleFunc("GET /api/v1/documents", dh.list)
		mux.HandleFunc("GET /api/v1/documents/{id}", dh.get)
	}
	mux.HandleFunc("POST /api/v1/query", qh.query)

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 1
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(limit, burst)

	// Outermost first: Recovery → Logging → RateLimit → Routes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
