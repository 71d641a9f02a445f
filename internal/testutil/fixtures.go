package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

// TestSecret is a JWT secret long enough for config validation.
const TestSecret = "test-secret-test-secret-test-secret!"

// AddUser stores a user whose password is password. MinCost keeps tests
// fast; verification accepts any cost.
func (s *Store) AddUser(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// AddEvent stores an event created by owner starting at start.
func (s *Store) AddEvent(t *testing.T, owner *models.User, title string, start time.Time) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       title,
		StartAt:     start.UTC(),
		CreatedByID: owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Events.Create(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// Event returns a copy of the stored event, or nil.
func (s *Store) Event(id string) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil
	}
	return &event
}
