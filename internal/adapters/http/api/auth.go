// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler exchanges the operator password for a bearer token and guards
// mutating routes. When no password hash is configured every route is open.
type AuthHandler struct {
	cfg Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Enabled reports whether authentication is configured.
func (h *AuthHandler) Enabled() bool {
	return h.cfg.OperatorPasswordHash != ""
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin handles POST /auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		writeError(w, http.StatusNotFound, "auth_disabled", ErrAuthDisabled)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.OperatorPasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", ErrUnauthorized)
		return
	}

	expires := time.Now().Add(h.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_sign", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

// Require wraps a handler with bearer-token verification. It is a no-op
// when authentication is disabled.
func (h *AuthHandler) Require(next http.HandlerFunc) http.HandlerFunc {
	if !h.Enabled() {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", ErrUnauthorized)
			return
		}

		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(h.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid_token", ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}
