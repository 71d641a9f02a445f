package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/validation"
)

// RSVPRequest represents an RSVP request
type RSVPRequest struct {
	EventID string            `json:"eventId" validate:"required"`
	Status  models.RSVPStatus `json:"status" validate:"required,oneof=yes no maybe"`
}

// CountsPublisher receives the RSVP counts of an event after they change.
type CountsPublisher interface {
	PublishCounts(eventID string, counts models.RSVPCounts)
}

// RSVPService records the attendance answers of users
type RSVPService struct {
	events    EventStore
	rsvps     RSVPStore
	publisher CountsPublisher
	now       func() time.Time
}

// NewRSVPService creates a new RSVP service. publisher may be nil.
func NewRSVPService(events EventStore, rsvps RSVPStore, publisher CountsPublisher) *RSVPService {
	return &RSVPService{events: events, rsvps: rsvps, publisher: publisher, now: time.Now}
}

// SetRSVP stores the status of userID for the event, replacing any earlier
// answer. The write is a single upsert on (event, user).
func (s *RSVPService) SetRSVP(ctx context.Context, userID string, req RSVPRequest) (*models.RSVP, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.events.GetByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	rsvp := &models.RSVP{
		ID:        uuid.New().String(),
		EventID:   req.EventID,
		UserID:    userID,
		Status:    req.Status,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.rsvps.Upsert(ctx, rsvp); err != nil {
		return nil, fmt.Errorf("failed to set rsvp: %w", err)
	}

	log.Info().
		Str("event_id", rsvp.EventID).
		Str("user_id", userID).
		Str("status", string(rsvp.Status)).
		Msg("RSVP set")

	s.publish(ctx, rsvp.EventID)
	return rsvp, nil
}

// Counts returns the RSVP counts of an event
func (s *RSVPService) Counts(ctx context.Context, eventID string) (models.RSVPCounts, error) {
	return s.rsvps.CountByEvent(ctx, eventID)
}

func (s *RSVPService) publish(ctx context.Context, eventID string) {
	if s.publisher == nil {
		return
	}
	counts, err := s.rsvps.CountByEvent(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to count rsvps for live update")
		return
	}
	s.publisher.PublishCounts(eventID, counts)
}
