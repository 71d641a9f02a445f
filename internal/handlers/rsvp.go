package handlers

import (
	"net/http"

	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// RSVPHandler handles RSVP HTTP requests
type RSVPHandler struct {
	rsvpService *services.RSVPService
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(rsvpService *services.RSVPService) *RSVPHandler {
	return &RSVPHandler{rsvpService: rsvpService}
}

// SetRSVP handles POST /api/rsvp
func (h *RSVPHandler) SetRSVP(w http.ResponseWriter, r *http.Request) {
	var req services.RSVPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "set rsvp")
		return
	}

	rsvp, err := h.rsvpService.SetRSVP(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondAppError(w, r, err, "set rsvp")
		return
	}
	respondJSON(w, http.StatusOK, rsvp)
}
