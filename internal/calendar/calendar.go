// Package calendar reads events from external calendars and exports local
// events to calendar formats.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vzalabardo/tomorrowmanyers/internal/config"
)

// ErrNotConfigured is returned when no calendar credentials are configured.
var ErrNotConfigured = errors.New("calendar source is not configured")

// Event is an event as read from an external calendar. EndAt is nil when
// the source does not carry an end.
type Event struct {
	ExternalID  string
	Title       string
	Description *string
	Location    *string
	StartAt     time.Time
	EndAt       *time.Time
}

// Source fetches the events of a calendar that start within [from, to).
// Recurring entries are expanded into one Event per occurrence.
type Source interface {
	Events(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)
}

// New builds the Source selected by cfg.Provider. It returns
// ErrNotConfigured when the provider has no credentials.
func New(ctx context.Context, cfg config.CalendarConfig) (Source, error) {
	switch cfg.Provider {
	case "", "google":
		if cfg.CredentialsFile == "" && (cfg.ServiceAccountEmail == "" || cfg.ServiceAccountKey == "") {
			return nil, ErrNotConfigured
		}
		return NewGoogleSource(ctx, cfg)
	case "caldav":
		if cfg.CalDAVEndpoint == "" {
			return nil, ErrNotConfigured
		}
		return NewCalDAVSource(cfg)
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.Provider)
	}
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
