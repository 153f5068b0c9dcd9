// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/formchat/internal/api"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the backend listens unless configured otherwise.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultMaxBodyBytes caps request bodies (1MB).
	DefaultMaxBodyBytes = 1 << 20

	// DefaultUpstreamTimeout bounds one provider call.
	DefaultUpstreamTimeout = 120 * time.Second

	// MaxMessageLength is the longest accepted message in bytes.
	MaxMessageLength = 100000

	healthTimeout = 2 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr string
	// RateLimit is sustained requests per second per client IP; 0 disables
	// limiting.
	RateLimit       float64
	RateBurst       int
	MaxBodyBytes    int64
	UpstreamTimeout time.Duration
	Version         string
}

// Server is the HTTP backend.
type Server struct {
	opts     Options
	provider Provider
	mux      *http.ServeMux
	handler  http.Handler
	started  time.Time

	mu     sync.Mutex
	server *http.Server
}

// New creates a server answering from provider. Zero options take defaults.
func New(provider Provider, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = DefaultUpstreamTimeout
	}

	s := &Server{
		opts:     opts,
		provider: provider,
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}
	s.setupRoutes()

	var limiter *RateLimiter
	if opts.RateLimit > 0 {
		limiter = NewRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	s.handler = Chain(
		RequestIDMiddleware(),
		RecoveryMiddleware(),
		LoggingMiddleware(),
		RateLimitMiddleware(limiter),
		BodyLimitMiddleware(opts.MaxBodyBytes),
	)(s.mux)

	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/response", s.handleResponse)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// handleResponse handles POST /api/response.
func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req api.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		logger.Debug().Err(err).Msg("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}
	if strings.TrimSpace(req.CurrentModel) == "" {
		writeError(w, http.StatusBadRequest, "currentModel is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.UpstreamTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.provider.Complete(ctx, req.CurrentModel, req.Message)
	if err != nil {
		status, msg := providerStatus(err)
		logger.Warn().Err(err).Str("model", req.CurrentModel).Int("status", status).Msg("completion failed")
		writeError(w, status, msg)
		return
	}

	logger.Info().Str("model", req.CurrentModel).Dur("upstream", time.Since(start)).Int("reply_len", len(reply)).
		Msg("completion served")
	writeJSON(w, http.StatusOK, api.CompletionResponse{Bot: reply})
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.UpstreamTimeout)
	defer cancel()

	models, err := s.provider.Models(ctx)
	if err != nil {
		status, msg := providerStatus(err)
		zerolog.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("model listing failed")
		writeError(w, status, msg)
		return
	}
	if models == nil {
		models = []api.ModelDescriptor{}
	}
	writeJSON(w, http.StatusOK, api.ModelList{Data: models})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Upstream      string `json:"upstream"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth handles GET /health. The status is always 200; a provider
// that does not answer turns the body status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	health := HealthResponse{
		Status:        "ok",
		Upstream:      "ok",
		Version:       s.opts.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if err := s.provider.Ping(ctx); err != nil {
		health.Status = "degraded"
		health.Upstream = "unavailable"
	}
	writeJSON(w, http.StatusOK, health)
}

// providerStatus maps a provider error to a status code and a client-safe
// message.
func providerStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnknownModel):
		return http.StatusNotFound, "unknown model"
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "model provider timed out"
	case errors.Is(err, ErrUpstreamDown):
		return http.StatusServiceUnavailable, "model provider unavailable"
	default:
		return http.StatusBadGateway, "model provider error"
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe listens on the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.opts.UpstreamTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Str("version", s.opts.Version).Msg("server started")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Info().Msg("server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
