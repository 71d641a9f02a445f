package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, location, start_at, end_at, created_by_id, external_id, created_at, updated_at`

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row, event *models.Event, extra ...any) error {
	dest := []any{
		&event.ID, &event.Title, &event.Description, &event.Location, &event.StartAt,
		&event.EndAt, &event.CreatedByID, &event.ExternalID, &event.CreatedAt, &event.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.Title, event.Description, event.Location, event.StartAt,
		event.EndAt, event.CreatedByID, event.ExternalID, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("user")
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := scanEvent(r.db.QueryRow(ctx, query, id), &event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("event")
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// Update overwrites the editable fields of an event. Creator and external
// identifier are never changed here.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, location = $4, start_at = $5, end_at = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		event.ID, event.Title, event.Description, event.Location, event.StartAt, event.EndAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("event")
	}
	return nil
}

// Delete deletes an event; its RSVPs go with it through ON DELETE CASCADE
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("event")
	}
	return nil
}

// List retrieves upcoming events with their RSVP counts
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]*models.EventView, error) {
	query := `
		SELECT e.id, e.title, e.description, e.location, e.start_at, e.end_at,
		       e.created_by_id, e.external_id, e.created_at, e.updated_at,
		       COUNT(r.id) FILTER (WHERE r.status = 'yes'),
		       COUNT(r.id) FILTER (WHERE r.status = 'no'),
		       COUNT(r.id) FILTER (WHERE r.status = 'maybe'),
		       COUNT(r.id)
		FROM events e
		LEFT JOIN rsvps r ON r.event_id = e.id
		WHERE e.start_at >= $1
		  AND ($2::text IS NULL OR EXISTS (
		        SELECT 1 FROM rsvps m
		        WHERE m.event_id = e.id AND m.user_id = $2 AND m.status = 'yes'))
		GROUP BY e.id
		ORDER BY e.start_at ASC, e.id ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.From, filter.AttendingUserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var views []*models.EventView
	for rows.Next() {
		view := &models.EventView{Event: &models.Event{}}
		c := &view.Counts
		if err := scanEvent(rows, view.Event, &c.Yes, &c.No, &c.Maybe, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return views, nil
}

// UpsertExternal creates or updates the event identified by its external
// identifier in one statement. On update only the content fields change;
// the stored creator is kept. It reports whether a row was created and
// refreshes event with the stored id, creator and creation time.
func (r *EventRepository) UpsertExternal(ctx context.Context, event *models.Event) (bool, error) {
	if event.ExternalID == nil {
		return false, fmt.Errorf("failed to upsert event: missing external id")
	}
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_by_id, created_at, (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		event.ID, event.Title, event.Description, event.Location, event.StartAt,
		event.EndAt, event.CreatedByID, event.ExternalID, event.CreatedAt, event.UpdatedAt,
	).Scan(&event.ID, &event.CreatedByID, &event.CreatedAt, &inserted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperrors.NotFound("user")
		}
		return false, fmt.Errorf("failed to upsert event %s: %w", *event.ExternalID, err)
	}
	return inserted, nil
}
