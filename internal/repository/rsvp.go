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

// RSVPRepository handles database operations for RSVPs
type RSVPRepository struct {
	db *pgxpool.Pool
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db *pgxpool.Pool) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Upsert stores the status for (event, user) in a single statement guarded
// by the rsvps_event_id_user_id_key constraint. rsvp is refreshed with the
// stored id and timestamps.
func (r *RSVPRepository) Upsert(ctx context.Context, rsvp *models.RSVP) error {
	query := `
		INSERT INTO rsvps (id, event_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		rsvp.ID, rsvp.EventID, rsvp.UserID, rsvp.Status, rsvp.UpdatedAt,
	).Scan(&rsvp.ID, &rsvp.CreatedAt, &rsvp.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("event")
		}
		return fmt.Errorf("failed to upsert rsvp: %w", err)
	}
	return nil
}

// Get retrieves the RSVP of a user for an event
func (r *RSVPRepository) Get(ctx context.Context, eventID, userID string) (*models.RSVP, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at, updated_at
		FROM rsvps
		WHERE event_id = $1 AND user_id = $2
	`
	var rsvp models.RSVP
	err := r.db.QueryRow(ctx, query, eventID, userID).Scan(
		&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("rsvp")
		}
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return &rsvp, nil
}

// ListByEvent retrieves the RSVPs of an event with the responding users
func (r *RSVPRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.RSVP, error) {
	query := `
		SELECT r.id, r.event_id, r.user_id, r.status, r.created_at, r.updated_at,
		       u.id, u.name, u.avatar_url
		FROM rsvps r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()

	var rsvps []*models.RSVP
	for rows.Next() {
		rsvp := &models.RSVP{User: &models.UserSummary{}}
		err := rows.Scan(
			&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt,
			&rsvp.User.ID, &rsvp.User.Name, &rsvp.User.AvatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rsvps = append(rsvps, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rsvps: %w", err)
	}
	return rsvps, nil
}

// CountByEvent aggregates the RSVPs of an event by status
func (r *RSVPRepository) CountByEvent(ctx context.Context, eventID string) (models.RSVPCounts, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'yes'),
		       COUNT(*) FILTER (WHERE status = 'no'),
		       COUNT(*) FILTER (WHERE status = 'maybe'),
		       COUNT(*)
		FROM rsvps
		WHERE event_id = $1
	`
	var c models.RSVPCounts
	if err := r.db.QueryRow(ctx, query, eventID).Scan(&c.Yes, &c.No, &c.Maybe, &c.Total); err != nil {
		return models.RSVPCounts{}, fmt.Errorf("failed to count rsvps: %w", err)
	}
	return c, nil
}

// ListByUser retrieves the RSVPs of a user for the given events, keyed by event ID
func (r *RSVPRepository) ListByUser(ctx context.Context, userID string, eventIDs []string) (map[string]*models.RSVP, error) {
	result := make(map[string]*models.RSVP, len(eventIDs))
	if len(eventIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT id, event_id, user_id, status, created_at, updated_at
		FROM rsvps
		WHERE user_id = $1 AND event_id = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rsvps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rsvp models.RSVP
		err := rows.Scan(&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		result[rsvp.EventID] = &rsvp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rsvps: %w", err)
	}
	return result, nil
}
