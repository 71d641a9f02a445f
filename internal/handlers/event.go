package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/calendar"
	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// ListEvents handles GET /api/events?page=&limit=&myEvents=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// Invalid numbers fall back to the defaults.
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	views, err := h.eventService.List(r.Context(), middleware.GetUserID(r.Context()), services.ListEventsRequest{
		Page:     page,
		Limit:    limit,
		MyEvents: q.Get("myEvents") == "true",
	})
	if err != nil {
		respondAppError(w, r, err, "list events")
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "create event")
		return
	}

	event, err := h.eventService.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondAppError(w, r, err, "create event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.eventService.Get(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, "get event")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "update event")
		return
	}

	event, err := h.eventService.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respondAppError(w, r, err, "update event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondAppError(w, r, err, "delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportICS handles GET /api/events/{id}/ics
func (h *EventHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err, "export event")
		return
	}

	data, err := calendar.ICS(event, time.Now())
	if err != nil {
		respondAppError(w, r, err, "export event")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event-`+event.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to write ics")
	}
}

// GoogleCalendar handles GET /api/events/{id}/google-calendar
func (h *EventHandler) GoogleCalendar(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err, "build calendar link")
		return
	}
	http.Redirect(w, r, calendar.GoogleTemplateURL(event), http.StatusFound)
}
