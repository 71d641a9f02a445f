package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

// DefaultCookieName is the name of the session cookie.
const DefaultCookieName = "session"

// Sessions manages the session cookie and the authentication middleware.
type Sessions struct {
	auth       *services.AuthService
	cookieName string
	secure     bool
}

// NewSessions creates a session manager. secure marks cookies Secure and
// is set in production.
func NewSessions(auth *services.AuthService, cookieName string, secure bool) *Sessions {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Sessions{auth: auth, cookieName: cookieName, secure: secure}
}

// Create issues a session token for userID and stores it in the cookie.
func (s *Sessions) Create(w http.ResponseWriter, userID string) error {
	token, expiresAt, err := s.auth.IssueToken(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(s.auth.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy clears the session cookie.
func (s *Sessions) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID returns the user of a valid session cookie. A missing, invalid or
// expired cookie yields false.
func (s *Sessions) UserID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", false
	}
	userID, err := s.auth.ValidateToken(cookie.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}

// CurrentUser resolves the session cookie to a stored user, or nil.
func (s *Sessions) CurrentUser(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return nil, nil
	}
	return s.auth.CurrentUser(r.Context(), cookie.Value)
}

// Optional stores the session user in the context when there is one
func (s *Sessions) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.CurrentUser(r)
		if err != nil {
			log.Error().Err(err).Msg("Failed to resolve session")
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, user.ID))
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects requests without a session whose user still exists
func (s *Sessions) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.CurrentUser(r)
		if err != nil {
			log.Error().Err(err).Msg("Failed to resolve session")
			respondError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			respondError(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
