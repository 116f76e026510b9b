// Package api serves the feedback board over HTTP: the v1 admin and widget
// API, the mock feedback endpoint and the health check.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	feedbackDomain "github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	identityDomain "github.com/felixgeelhaar/featureboard/internal/identity/domain"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
	logger *slog.Logger

	feedback *FeedbackHandler
	auth     *AuthHandler
	mock     *MockHandler
	health   *observability.HealthRegistry
	metrics  *observability.InMemoryMetrics
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MockEndpoint mounts the mock feedback endpoint.
	MockEndpoint bool
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MockEndpoint: true,
	}
}

// Handlers groups the route handlers. Nil handlers leave their routes out.
type Handlers struct {
	Feedback *FeedbackHandler
	Auth     *AuthHandler
	Mock     *MockHandler
	Health   *observability.HealthRegistry
	Metrics  *observability.InMemoryMetrics
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, h Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.MockEndpoint {
		h.Mock = nil
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		feedback: h.Feedback,
		auth:     h.Auth,
		mock:     h.Mock,
		health:   h.Health,
		metrics:  h.Metrics,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.metrics.Snapshot())
		})
	}

	if f := s.feedback; f != nil {
		s.mux.HandleFunc("GET /api/v1/feedback", f.List)
		s.mux.HandleFunc("POST /api/v1/feedback", f.Create)
		s.mux.HandleFunc("GET /api/v1/feedback/{id}", f.Get)
		s.mux.HandleFunc("PATCH /api/v1/feedback/{id}", f.Update)
		s.mux.HandleFunc("DELETE /api/v1/feedback/{id}", f.Delete)
		s.mux.HandleFunc("POST /api/v1/feedback/{id}/comments", f.AddComment)
		s.mux.HandleFunc("POST /api/v1/feedback/{id}/upvotes", f.AddUpvote)
		s.mux.HandleFunc("DELETE /api/v1/feedback/{id}/upvotes/{userID}", f.RemoveUpvote)
		s.mux.HandleFunc("GET /api/v1/labels", f.Labels)
	}

	if a := s.auth; a != nil {
		s.mux.HandleFunc("POST /api/v1/auth/login", a.Login)
		s.mux.HandleFunc("POST /api/v1/auth/signup", a.Signup)
		s.mux.HandleFunc("POST /api/v1/apikeys", a.IssueAPIKey)
	}

	if s.mock != nil {
		for _, prefix := range MockPrefixes {
			s.mux.Handle(prefix, s.mock.Mount(prefix))
			s.mux.Handle(prefix+"/", s.mock.Mount(prefix))
		}
	}
}

// Handler returns the routed handler with request context middleware.
func (s *Server) Handler() http.Handler {
	return withRequestContext(s.mux)
}

// handleHealth reports component health. Unhealthy components turn the
// response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	overall := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if overall.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting feedback API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down feedback API server")
	return s.server.Shutdown(ctx)
}

func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get("X-Correlation-ID"))
		w.Header().Set("X-Request-ID", observability.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// writeAPIError writes e with its status.
func writeAPIError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Status, e)
}

// APIError represents an API error.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common API errors
var (
	ErrBadRequest = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "bad_request",
		Message: "Invalid request",
	}
	ErrUnauthorized = &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: "Unknown API key",
	}
	ErrNotFound = &APIError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "Resource not found",
	}
	ErrInternalServer = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "Internal server error",
	}
)

// toAPIError maps domain errors onto HTTP statuses.
func toAPIError(err error) *APIError {
	switch {
	case errors.Is(err, feedbackDomain.ErrValidation),
		errors.Is(err, identityDomain.ErrInvalidEmail),
		errors.Is(err, identityDomain.ErrEmptyName),
		errors.Is(err, identityDomain.ErrEmptyPassword):
		return &APIError{Status: http.StatusBadRequest, Code: "validation_failed", Message: err.Error()}
	case errors.Is(err, identityDomain.ErrInvalidCredentials):
		return &APIError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: err.Error()}
	case errors.Is(err, identityDomain.ErrEmailTaken):
		return &APIError{Status: http.StatusConflict, Code: "email_taken", Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusServiceUnavailable, Code: "cancelled", Message: err.Error()}
	}
	return ErrInternalServer
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", feedbackDomain.ErrValidation, err)
	}
	return nil
}
