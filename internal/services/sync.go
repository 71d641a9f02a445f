package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/calendar"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultWindowMonths = 6
	defaultEventLength  = time.Hour
)

// ErrSyncNotConfigured is returned when no calendar source or calendar ID
// is configured.
var ErrSyncNotConfigured = apperrors.New(apperrors.ErrExternalService, "calendar sync is not configured")

// SyncResult is the outcome of one sync run. A failed fetch is reported
// with Success false and no counts.
type SyncResult struct {
	Success bool   `json:"success"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// SyncService reconciles an external calendar into local events by
// external ID. It never deletes local events.
type SyncService struct {
	events       EventStore
	source       calendar.Source
	fetchTimeout time.Duration
	windowMonths int
	now          func() time.Time
}

// NewSyncService creates a new sync service. source may be nil when no
// calendar is configured.
func NewSyncService(events EventStore, source calendar.Source, fetchTimeout time.Duration, windowMonths int) *SyncService {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if windowMonths <= 0 {
		windowMonths = defaultWindowMonths
	}
	return &SyncService{
		events:       events,
		source:       source,
		fetchTimeout: fetchTimeout,
		windowMonths: windowMonths,
		now:          time.Now,
	}
}

// SyncExternalEvents fetches the events of calendarID from now through the
// configured window and upserts each of them. New events are owned by
// ownerID; existing ones keep their creator.
//
// All events are fetched before anything is written, so a fetch failure
// leaves the store untouched. Per-event write failures are counted in
// Failed and do not stop the run.
func (s *SyncService) SyncExternalEvents(ctx context.Context, calendarID, ownerID string) (*SyncResult, error) {
	if s.source == nil || calendarID == "" {
		return nil, ErrSyncNotConfigured
	}

	now := s.now().UTC()
	from, to := now, now.AddDate(0, s.windowMonths, 0)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	external, err := s.source.Events(fetchCtx, calendarID, from, to)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("calendar_id", calendarID).Msg("Failed to fetch external events")
		return &SyncResult{Success: false, Error: "failed to fetch external calendar events"}, nil
	}

	result := &SyncResult{Success: true, Total: len(external)}
	for _, ext := range external {
		event := toLocalEvent(ext, ownerID, now)
		created, err := s.events.UpsertExternal(ctx, event)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("external_id", ext.ExternalID).Msg("Failed to upsert external event")
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	log.Info().
		Str("calendar_id", calendarID).
		Str("owner_id", ownerID).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Int("total", result.Total).
		Msg("Calendar sync complete")
	return result, nil
}

// toLocalEvent maps an external event, giving it a one hour duration when
// the end is missing or not after the start.
func toLocalEvent(ext calendar.Event, ownerID string, now time.Time) *models.Event {
	externalID := ext.ExternalID
	start := ext.StartAt.UTC()
	end := start.Add(defaultEventLength)
	if ext.EndAt != nil && ext.EndAt.After(start) {
		end = ext.EndAt.UTC()
	}
	return &models.Event{
		ID:          uuid.New().String(),
		Title:       ext.Title,
		Description: ext.Description,
		Location:    ext.Location,
		StartAt:     start,
		EndAt:       &end,
		CreatedByID: ownerID,
		ExternalID:  &externalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// String implements fmt.Stringer for CLI output.
func (r *SyncResult) String() string {
	if !r.Success {
		return fmt.Sprintf("sync failed: %s", r.Error)
	}
	return fmt.Sprintf("created=%d updated=%d failed=%d total=%d", r.Created, r.Updated, r.Failed, r.Total)
}
