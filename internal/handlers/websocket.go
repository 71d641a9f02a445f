package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams live RSVP counts of an event
type WebSocketHandler struct {
	hub          *services.WSHub
	eventService *services.EventService
	rsvpService  *services.RSVPService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, eventService *services.EventService, rsvpService *services.RSVPService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, eventService: eventService, rsvpService: rsvpService}
}

// HandleWebSocket handles GET /api/events/{id}/live
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "id")

	if _, err := h.eventService.GetEvent(ctx, eventID); err != nil {
		respondAppError(w, r, err, "watch event")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// Registered before the snapshot is read, so later changes reach this
	// connection after it.
	h.hub.Register(eventID, conn)
	defer h.hub.Unregister(eventID, conn)

	load := func() (models.RSVPCounts, error) {
		return h.rsvpService.Counts(ctx, eventID)
	}
	if err := h.hub.SendSnapshot(eventID, conn, load); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to send initial counts")
		return
	}

	// Client messages are ignored; reading only detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("event_id", eventID).Msg("WebSocket error")
			}
			return
		}
	}
}
