package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EventRequest represents the body of event create and update requests.
// Timestamps are RFC 3339 strings with an offset.
type EventRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Location    *string `json:"location" validate:"omitempty,max=500"`
	StartAt     string  `json:"startAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndAt       *string `json:"endAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ListEventsRequest selects a page of upcoming events
type ListEventsRequest struct {
	Page     int
	Limit    int
	MyEvents bool
}

// EventService handles event CRUD and the views returned to clients
type EventService struct {
	events EventStore
	rsvps  RSVPStore
	users  UserStore
	now    func() time.Time
}

// NewEventService creates a new event service
func NewEventService(events EventStore, rsvps RSVPStore, users UserStore) *EventService {
	return &EventService{events: events, rsvps: rsvps, users: users, now: time.Now}
}

// parse validates req and converts it into event fields.
func (req *EventRequest) parse() (start time.Time, end *time.Time, err error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = emptyToNil(req.Description)
	req.Location = emptyToNil(req.Location)
	if req.EndAt != nil && strings.TrimSpace(*req.EndAt) == "" {
		req.EndAt = nil
	}
	if err := validation.Struct(req); err != nil {
		return time.Time{}, nil, err
	}

	start, err = time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return time.Time{}, nil, apperrors.Validation(map[string]string{"startAt": "must be an ISO-8601 date-time"})
	}
	start = start.UTC()
	if req.EndAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndAt)
		if err != nil {
			return time.Time{}, nil, apperrors.Validation(map[string]string{"endAt": "must be an ISO-8601 date-time"})
		}
		t = t.UTC()
		if !t.After(start) {
			return time.Time{}, nil, apperrors.Validation(map[string]string{"endAt": "must be after startAt"})
		}
		end = &t
	}
	return start, end, nil
}

// Create creates an event owned by userID
func (s *EventService) Create(ctx context.Context, userID string, req EventRequest) (*models.Event, error) {
	start, end, err := req.parse()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &models.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     start,
		EndAt:       end,
		CreatedByID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	log.Info().Str("event_id", event.ID).Str("user_id", userID).Msg("Event created")
	return event, nil
}

// getOwned loads an event and checks that userID created it.
func (s *EventService) getOwned(ctx context.Context, userID, eventID string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatedByID != userID {
		return nil, apperrors.New(apperrors.ErrForbidden, "only the creator can modify this event")
	}
	return event, nil
}

// Update overwrites the event fields. Only the creator may update.
func (s *EventService) Update(ctx context.Context, userID, eventID string, req EventRequest) (*models.Event, error) {
	event, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	start, end, err := req.parse()
	if err != nil {
		return nil, err
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.StartAt = start
	event.EndAt = end
	event.UpdatedAt = s.now().UTC()
	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	log.Info().Str("event_id", event.ID).Str("user_id", userID).Msg("Event updated")
	return event, nil
}

// Delete removes the event and its RSVPs. Only the creator may delete.
func (s *EventService) Delete(ctx context.Context, userID, eventID string) error {
	if _, err := s.getOwned(ctx, userID, eventID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("Event deleted")
	return nil
}

// GetEvent returns the bare event
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// Get returns the event detail: creator, RSVPs with their users and counts.
// viewerID is empty for anonymous viewers.
func (s *EventService) Get(ctx context.Context, eventID, viewerID string) (*models.EventView, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	view := &models.EventView{Event: event, Authenticated: viewerID != ""}

	creator, err := s.users.GetByID(ctx, event.CreatedByID)
	switch {
	case err == nil:
		view.CreatedBy = creator.Summary()
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to get event creator: %w", err)
	}

	rsvps, err := s.rsvps.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	view.RSVPs = rsvps
	for _, r := range rsvps {
		view.Counts.Add(r.Status)
		if viewerID != "" && r.UserID == viewerID {
			view.UserRSVP = r
		}
	}
	return view, nil
}

// List returns a page of upcoming events ordered by start time. MyEvents
// only applies to authenticated viewers.
func (s *EventService) List(ctx context.Context, viewerID string, req ListEventsRequest) ([]*models.EventView, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := models.EventFilter{
		From:   s.now().UTC(),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if req.MyEvents && viewerID != "" {
		filter.AttendingUserID = &viewerID
	}

	views, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if views == nil {
		views = []*models.EventView{}
	}
	if viewerID == "" {
		return views, nil
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	mine, err := s.rsvps.ListByUser(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rsvps: %w", err)
	}
	for _, v := range views {
		v.Authenticated = true
		v.UserRSVP = mine[v.ID]
	}
	return views, nil
}
