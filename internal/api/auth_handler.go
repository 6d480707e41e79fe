package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nmslite/fleetpoll/internal/auth"
)

// Authenticator issues tokens. *auth.Service satisfies it.
type Authenticator interface {
	Login(username, password string) (*auth.LoginResponse, error)
}

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates a login handler.
func NewAuthHandler(a Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: a, logger: logger}
}

// Login handles POST /api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[auth.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.WarnContext(r.Context(), "Login rejected",
			slog.String("username", req.Username),
			slog.String("ip", r.RemoteAddr),
		)
		sendError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
		sendError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", nil)
		return
	}

	sendJSON(w, http.StatusOK, resp)
}
