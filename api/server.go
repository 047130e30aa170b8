// Package api provides the HTTP surface of docsage.
//
// Endpoints:
//
//	POST /api/v1/ask            →  answer a question
//	POST /api/v1/notifications  →  Drive change webhook
//	GET  /health                →  liveness probe
//	GET  /ready                 →  readiness probe (database ping)
//
// The probe endpoints sit outside the middleware stack so orchestrator
// checks never count against rate limits or emit request logs.
//
// File structure:
//   - server.go: server setup, middleware chain, lifecycle
//   - middleware.go: recovery, request id, logging, CORS
//   - ratelimit.go: per-IP token bucket
//   - ask.go: question endpoint
//   - webhook.go: Drive notification endpoint
//   - health.go: probe endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second

	// defaultRatePerSecond refills one token per second per IP.
	defaultRatePerSecond = 1.0
)

// ServerConfig carries the server's collaborators and settings.
type ServerConfig struct {
	Asker       Asker
	Pipeline    Processor
	Pool        *pgxpool.Pool
	CORSOrigins []string
	TrustProxy  bool
	RateBurst   int
	Logger      log.Logger
}

// Server is the HTTP server for docsage.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered and the middleware
// chain applied: recovery → request id → logging → CORS → rate limit.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Asker == nil {
		return nil, errors.New("asker is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingestion pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}

	ask := &askHandler{svc: cfg.Asker, logger: logger}
	webhook := &webhookHandler{pipeline: cfg.Pipeline, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ask", ask.handleAsk)
	mux.HandleFunc("POST /api/v1/notifications", webhook.handleNotification)

	rl := newRateLimiter(defaultRatePerSecond, burst)
	handler := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		loggingMiddleware(logger),
		corsMiddleware(cfg.CORSOrigins),
		rateLimitMiddleware(rl, cfg.TrustProxy, logger),
	)

	// A top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
