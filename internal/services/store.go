package services

import (
	"context"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

// UserStore persists users. It is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name string, bio, avatarURL *string) (*models.User, error)
}

// EventStore persists events. It is implemented by repository.EventRepository.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.EventFilter) ([]*models.EventView, error)
	UpsertExternal(ctx context.Context, event *models.Event) (bool, error)
}

// RSVPStore persists RSVPs. It is implemented by repository.RSVPRepository.
type RSVPStore interface {
	Upsert(ctx context.Context, rsvp *models.RSVP) error
	Get(ctx context.Context, eventID, userID string) (*models.RSVP, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.RSVP, error)
	CountByEvent(ctx context.Context, eventID string) (models.RSVPCounts, error)
	ListByUser(ctx context.Context, userID string, eventIDs []string) (map[string]*models.RSVP, error)
}
