// Package testutil provides in-memory stores with the same uniqueness and
// cascade rules as the Postgres schema.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

// Store holds users, events and RSVPs in memory. Users, Events and RSVPs
// expose the repository method sets.
type Store struct {
	mu     sync.Mutex
	users  map[string]models.User
	events map[string]models.Event
	rsvps  map[rsvpKey]models.RSVP
	writes int

	// UpsertExternalErr, when set, is consulted before each external upsert.
	UpsertExternalErr func(event *models.Event) error

	Users  *UserStore
	Events *EventStore
	RSVPs  *RSVPStore
}

type rsvpKey struct{ eventID, userID string }

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{
		users:  make(map[string]models.User),
		events: make(map[string]models.Event),
		rsvps:  make(map[rsvpKey]models.RSVP),
	}
	s.Users = &UserStore{s}
	s.Events = &EventStore{s}
	s.RSVPs = &RSVPStore{s}
	return s
}

// Writes returns the number of successful mutations so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// RSVPCount returns the number of stored RSVPs for (eventID, userID).
func (s *Store) RSVPCount(eventID, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.rsvps {
		if k.eventID == eventID && k.userID == userID {
			n++
		}
	}
	return n
}

// UserStore is the in-memory counterpart of repository.UserRepository.
type UserStore struct{ s *Store }

func (u *UserStore) Create(_ context.Context, user *models.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apperrors.ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	s.writes++
	return nil
}

func (u *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	user.PasswordHash = ""
	return &user, nil
}

func (u *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (u *UserStore) UpdateProfile(_ context.Context, id, name string, bio, avatarURL *string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	user.Name, user.Bio, user.AvatarURL = name, bio, avatarURL
	s.users[id] = user
	s.writes++
	user.PasswordHash = ""
	return &user, nil
}

// EventStore is the in-memory counterpart of repository.EventRepository.
type EventStore struct{ s *Store }

func (e *EventStore) Create(_ context.Context, event *models.Event) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[event.CreatedByID]; !ok {
		return apperrors.NotFound("user")
	}
	s.events[event.ID] = *event
	s.writes++
	return nil
}

func (e *EventStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, apperrors.NotFound("event")
	}
	return &event, nil
}

func (e *EventStore) Update(_ context.Context, event *models.Event) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return apperrors.NotFound("event")
	}
	stored.Title = event.Title
	stored.Description = event.Description
	stored.Location = event.Location
	stored.StartAt = event.StartAt
	stored.EndAt = event.EndAt
	stored.UpdatedAt = event.UpdatedAt
	s.events[event.ID] = stored
	s.writes++
	return nil
}

func (e *EventStore) Delete(_ context.Context, id string) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return apperrors.NotFound("event")
	}
	delete(s.events, id)
	for k := range s.rsvps {
		if k.eventID == id {
			delete(s.rsvps, k)
		}
	}
	s.writes++
	return nil
}

func (e *EventStore) List(_ context.Context, filter models.EventFilter) ([]*models.EventView, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Event
	for _, event := range s.events {
		if event.StartAt.Before(filter.From) {
			continue
		}
		if filter.AttendingUserID != nil {
			r, ok := s.rsvps[rsvpKey{event.ID, *filter.AttendingUserID}]
			if !ok || r.Status != models.RSVPYes {
				continue
			}
		}
		matched = append(matched, event)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartAt.Equal(matched[j].StartAt) {
			return matched[i].StartAt.Before(matched[j].StartAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	views := make([]*models.EventView, 0, len(matched))
	for i := range matched {
		view := &models.EventView{Event: &matched[i]}
		for k, r := range s.rsvps {
			if k.eventID == matched[i].ID {
				view.Counts.Add(r.Status)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (e *EventStore) UpsertExternal(_ context.Context, event *models.Event) (bool, error) {
	s := e.s
	if s.UpsertExternalErr != nil {
		if err := s.UpsertExternalErr(event); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stored := range s.events {
		if stored.ExternalID == nil || event.ExternalID == nil || *stored.ExternalID != *event.ExternalID {
			continue
		}
		stored.Title = event.Title
		stored.Description = event.Description
		stored.Location = event.Location
		stored.StartAt = event.StartAt
		stored.EndAt = event.EndAt
		stored.UpdatedAt = event.UpdatedAt
		s.events[id] = stored
		s.writes++

		event.ID, event.CreatedByID, event.CreatedAt = stored.ID, stored.CreatedByID, stored.CreatedAt
		return false, nil
	}

	if _, ok := s.users[event.CreatedByID]; !ok {
		return false, apperrors.NotFound("user")
	}
	s.events[event.ID] = *event
	s.writes++
	return true, nil
}

// RSVPStore is the in-memory counterpart of repository.RSVPRepository.
type RSVPStore struct{ s *Store }

func (r *RSVPStore) Upsert(_ context.Context, rsvp *models.RSVP) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[rsvp.EventID]; !ok {
		return apperrors.NotFound("event")
	}
	if _, ok := s.users[rsvp.UserID]; !ok {
		return apperrors.NotFound("event")
	}

	key := rsvpKey{rsvp.EventID, rsvp.UserID}
	if stored, ok := s.rsvps[key]; ok {
		stored.Status = rsvp.Status
		stored.UpdatedAt = rsvp.UpdatedAt
		s.rsvps[key] = stored
		rsvp.ID, rsvp.CreatedAt = stored.ID, stored.CreatedAt
	} else {
		rsvp.CreatedAt = rsvp.UpdatedAt
		if rsvp.CreatedAt.IsZero() {
			rsvp.CreatedAt = time.Now()
			rsvp.UpdatedAt = rsvp.CreatedAt
		}
		stored := *rsvp
		stored.User = nil
		s.rsvps[key] = stored
	}
	s.writes++
	return nil
}

func (r *RSVPStore) Get(_ context.Context, eventID, userID string) (*models.RSVP, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	rsvp, ok := s.rsvps[rsvpKey{eventID, userID}]
	if !ok {
		return nil, apperrors.NotFound("rsvp")
	}
	return &rsvp, nil
}

func (r *RSVPStore) ListByEvent(_ context.Context, eventID string) ([]*models.RSVP, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RSVP
	for k, rsvp := range s.rsvps {
		if k.eventID != eventID {
			continue
		}
		rsvp := rsvp
		if user, ok := s.users[rsvp.UserID]; ok {
			rsvp.User = user.Summary()
		}
		out = append(out, &rsvp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *RSVPStore) CountByEvent(_ context.Context, eventID string) (models.RSVPCounts, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.RSVPCounts
	for k, rsvp := range s.rsvps {
		if k.eventID == eventID {
			c.Add(rsvp.Status)
		}
	}
	return c, nil
}

func (r *RSVPStore) ListByUser(_ context.Context, userID string, eventIDs []string) (map[string]*models.RSVP, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.RSVP, len(eventIDs))
	for _, id := range eventIDs {
		if rsvp, ok := s.rsvps[rsvpKey{id, userID}]; ok {
			rsvp := rsvp
			out[id] = &rsvp
		}
	}
	return out, nil
}
