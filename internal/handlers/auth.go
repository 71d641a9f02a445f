package handlers

import (
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/ratelimit"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

var errTooManyAttempts = apperrors.New(apperrors.ErrRateLimited, "too many login attempts, try again in a minute")

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	authService *services.AuthService
	sessions    *middleware.Sessions
	limiter     ratelimit.Limiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, sessions *middleware.Sessions, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, limiter: limiter}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "register")
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondAppError(w, r, err, "register")
		return
	}
	if err := h.sessions.Create(w, user.ID); err != nil {
		respondAppError(w, r, err, "create session")
		return
	}

	respondJSON(w, http.StatusCreated, MessageResponse{Message: "registration successful", UserID: user.ID})
}

// Login handles POST /api/auth/login. Every attempt counts against the
// per-address limit, whatever the credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	addr := clientAddr(r)
	if h.limiter != nil && !h.limiter.Allow(addr) {
		log.Warn().Str("addr", addr).Msg("Login rate limit exceeded")
		respondAppError(w, r, errTooManyAttempts, "log in")
		return
	}

	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "log in")
		return
	}

	user, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondAppError(w, r, err, "log in")
		return
	}
	if err := h.sessions.Create(w, user.ID); err != nil {
		respondAppError(w, r, err, "create session")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User logged in")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "login successful", UserID: user.ID})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w)
	respondJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// clientAddr returns the host part of RemoteAddr. Behind a trusted proxy
// chi's RealIP has already replaced it with the forwarded address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
