package handlers

import (
	"net/http"

	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// CalendarHandler triggers external calendar syncs
type CalendarHandler struct {
	syncService *services.SyncService
	calendarID  string
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(syncService *services.SyncService, calendarID string) *CalendarHandler {
	return &CalendarHandler{syncService: syncService, calendarID: calendarID}
}

// Sync handles POST /api/calendar/sync. A failed fetch is still a 200
// with success false; only missing configuration is a 500.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncService.SyncExternalEvents(r.Context(), h.calendarID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, "sync calendar")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
