package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
)

// Authenticator logs users in and signs them up.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Signup(ctx context.Context, email, password, name string) (domain.User, error)
}

// KeyIssuer hands out per-user API keys.
type KeyIssuer interface {
	GetOrCreateAPIKey(ctx context.Context, userID string) (string, error)
}

// AuthHandler handles account and API key endpoints.
type AuthHandler struct {
	accounts Authenticator
	keys     KeyIssuer
	logger   *slog.Logger
}

// AuthHandlerConfig holds configuration for the auth handler.
type AuthHandlerConfig struct {
	Accounts Authenticator
	Keys     KeyIssuer
	Logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthHandler{accounts: cfg.Accounts, keys: cfg.Keys, logger: cfg.Logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	user, err := h.accounts.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(w, "signup failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type apiKeyRequest struct {
	UserID string `json:"userId"`
}

// IssueAPIKey handles POST /api/v1/apikeys. Repeated calls return the
// same key.
func (h *AuthHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	key, err := h.keys.GetOrCreateAPIKey(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, "failed to issue API key", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": req.UserID,
		"apiKey": key,
	})
}

func (h *AuthHandler) fail(w http.ResponseWriter, msg string, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	} else {
		h.logger.Debug(msg, "error", err)
	}
	writeAPIError(w, apiErr)
}
