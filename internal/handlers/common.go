package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse is returned by the auth endpoints
type MessageResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind error) int {
	switch kind {
	case apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError logs err and sends the response for its kind.
// Unclassified errors are reported with a generic message.
func respondAppError(w http.ResponseWriter, r *http.Request, err error, action string) {
	kind := apperrors.Kind(err)
	status := statusFor(kind)

	logger := log.With().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("user_id", middleware.GetUserID(r.Context())).
		Logger()
	if status >= http.StatusInternalServerError {
		logger.Error().Msg("Failed to " + action)
	} else {
		logger.Info().Int("status", status).Msg("Rejected request to " + action)
	}

	resp := ErrorResponse{Error: http.StatusText(status)}
	if appErr, ok := apperrors.As(err); ok && kind != apperrors.ErrInternal {
		resp.Error = appErr.Message
		resp.Fields = appErr.Fields
	} else if kind == apperrors.ErrInternal {
		resp.Error = "internal server error"
	}
	respondJSON(w, status, resp)
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.ErrValidation, "request body is required")
		}
		return apperrors.Wrap(apperrors.ErrValidation, "invalid request body", err)
	}
	return nil
}
