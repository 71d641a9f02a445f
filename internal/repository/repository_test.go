package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/database"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/repository"
)

// newTestPool connects to TEST_DATABASE_URL, migrates it and empties every
// table. Tests are skipped when the variable is not set.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	m, err := database.NewMigrator(dsn)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	_ = m.Close()

	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE rsvps, events, users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func createUser(t *testing.T, repo *repository.UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func createEvent(t *testing.T, repo *repository.EventRepository, owner *models.User, startAt time.Time) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       "Board games",
		StartAt:     startAt,
		CreatedByID: owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func TestUserRepository(t *testing.T) {
	pool := newTestPool(t)
	users := repository.NewUserRepository(pool)
	ctx := context.Background()

	alice := createUser(t, users, "alice@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		dup := &models.User{ID: uuid.NewString(), Name: "Other", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now()}
		if err := users.Create(ctx, dup); !errors.Is(err, apperrors.ErrEmailTaken) {
			t.Fatalf("Create() error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("get by id omits hash", func(t *testing.T) {
		got, err := users.GetByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.PasswordHash != "" {
			t.Error("GetByID() returned password hash")
		}
		if got.Email != alice.Email {
			t.Errorf("Email = %q, want %q", got.Email, alice.Email)
		}
	})

	t.Run("get by email includes hash", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, alice.Email)
		if err != nil {
			t.Fatalf("GetByEmail() error = %v", err)
		}
		if got.PasswordHash != "hash" {
			t.Errorf("PasswordHash = %q, want hash", got.PasswordHash)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("GetByID() error = %v, want not found", err)
		}
	})

	t.Run("update profile", func(t *testing.T) {
		bio := "likes hiking"
		got, err := users.UpdateProfile(ctx, alice.ID, "Alice", &bio, nil)
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
		if got.Name != "Alice" || got.Bio == nil || *got.Bio != bio || got.AvatarURL != nil {
			t.Errorf("UpdateProfile() = %+v", got)
		}
	})
}

func TestRSVPRepository_UpsertKeepsOneRow(t *testing.T) {
	pool := newTestPool(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	rsvps := repository.NewRSVPRepository(pool)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com")
	guest := createUser(t, users, "guest@example.com")
	event := createEvent(t, events, owner, time.Now().Add(24*time.Hour))

	for _, status := range []models.RSVPStatus{models.RSVPYes, models.RSVPNo, models.RSVPNo} {
		r := &models.RSVP{ID: uuid.NewString(), EventID: event.ID, UserID: guest.ID, Status: status, UpdatedAt: time.Now()}
		if err := rsvps.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%s) error = %v", status, err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND user_id = $2`, event.ID, guest.ID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
	got, err := rsvps.Get(ctx, event.ID, guest.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.RSVPNo {
		t.Errorf("Status = %s, want no", got.Status)
	}

	counts, err := rsvps.CountByEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("CountByEvent() error = %v", err)
	}
	if counts != (models.RSVPCounts{No: 1, Total: 1}) {
		t.Errorf("CountByEvent() = %+v", counts)
	}

	missing := &models.RSVP{ID: uuid.NewString(), EventID: "missing", UserID: guest.ID, Status: models.RSVPYes, UpdatedAt: time.Now()}
	if err := rsvps.Upsert(ctx, missing); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Upsert() on missing event error = %v, want not found", err)
	}
}

func TestEventRepository_UpsertExternal(t *testing.T) {
	pool := newTestPool(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	ctx := context.Background()

	first := createUser(t, users, "first@example.com")
	second := createUser(t, users, "second@example.com")
	extID := "google-123"
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	e := &models.Event{ID: uuid.NewString(), Title: "v1", StartAt: start, CreatedByID: first.ID, ExternalID: &extID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	created, err := events.UpsertExternal(ctx, e)
	if err != nil || !created {
		t.Fatalf("first UpsertExternal() = %v, %v; want created", created, err)
	}
	firstID := e.ID

	e2 := &models.Event{ID: uuid.NewString(), Title: "v2", StartAt: start, CreatedByID: second.ID, ExternalID: &extID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	created, err = events.UpsertExternal(ctx, e2)
	if err != nil || created {
		t.Fatalf("second UpsertExternal() = %v, %v; want updated", created, err)
	}
	if e2.ID != firstID || e2.CreatedByID != first.ID {
		t.Errorf("upsert changed identity: id=%s creator=%s", e2.ID, e2.CreatedByID)
	}

	stored, err := events.GetByID(ctx, firstID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Title != "v2" {
		t.Errorf("Title = %q, want v2", stored.Title)
	}
}

func TestEventRepository_ListAndCascade(t *testing.T) {
	pool := newTestPool(t)
	users := repository.NewUserRepository(pool)
	events := repository.NewEventRepository(pool)
	rsvps := repository.NewRSVPRepository(pool)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com")
	guest := createUser(t, users, "guest@example.com")
	createEvent(t, events, owner, time.Now().Add(-24*time.Hour))
	later := createEvent(t, events, owner, time.Now().Add(72*time.Hour))
	soon := createEvent(t, events, owner, time.Now().Add(24*time.Hour))

	r := &models.RSVP{ID: uuid.NewString(), EventID: later.ID, UserID: guest.ID, Status: models.RSVPYes, UpdatedAt: time.Now()}
	if err := rsvps.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	all, err := events.List(ctx, models.EventFilter{From: time.Now(), Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != soon.ID || all[1].ID != later.ID {
		t.Fatalf("List() returned %d events in unexpected order", len(all))
	}
	if all[1].Counts != (models.RSVPCounts{Yes: 1, Total: 1}) {
		t.Errorf("Counts = %+v", all[1].Counts)
	}

	mine, err := events.List(ctx, models.EventFilter{From: time.Now(), AttendingUserID: &guest.ID, Limit: 10})
	if err != nil {
		t.Fatalf("List(attending) error = %v", err)
	}
	if len(mine) != 1 || mine[0].ID != later.ID {
		t.Fatalf("List(attending) = %d events", len(mine))
	}

	if err := events.Delete(ctx, later.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := rsvps.Get(ctx, later.ID, guest.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("rsvp survived event deletion: %v", err)
	}
}
