package calendar

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/vzalabardo/tomorrowmanyers/internal/config"
)

const untitled = "Untitled"

// GoogleSource reads events through the Google Calendar API with a service
// account.
type GoogleSource struct {
	service *gcal.Service
}

// NewGoogleSource authenticates with the service account from cfg, either
// the inline email/key pair or a JSON credentials file.
func NewGoogleSource(ctx context.Context, cfg config.CalendarConfig) (*GoogleSource, error) {
	jwtConfig, err := serviceAccountConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newGoogleSource(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

func newGoogleSource(ctx context.Context, opts ...option.ClientOption) (*GoogleSource, error) {
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleSource{service: service}, nil
}

func serviceAccountConfig(cfg config.CalendarConfig) (*jwt.Config, error) {
	if cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		conf, err := google.JWTConfigFromJSON(b, gcal.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse credentials file: %w", err)
		}
		return conf, nil
	}
	if cfg.ServiceAccountEmail == "" || cfg.ServiceAccountKey == "" {
		return nil, ErrNotConfigured
	}
	return &jwt.Config{
		Email: cfg.ServiceAccountEmail,
		// Keys passed through the environment carry escaped newlines.
		PrivateKey: []byte(strings.ReplaceAll(cfg.ServiceAccountKey, `\n`, "\n")),
		Scopes:     []string{gcal.CalendarReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}, nil
}

// Events implements Source.
func (s *GoogleSource) Events(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	call := s.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		OrderBy("startTime")

	var events []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			event, ok := fromGoogle(item)
			if !ok {
				log.Debug().Str("calendar_id", calendarID).Str("event_id", item.Id).Msg("Skipping event without start")
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	log.Info().Str("calendar_id", calendarID).Int("count", len(events)).Msg("Fetched events from Google Calendar")
	return events, nil
}

// fromGoogle converts an API event. Date-only values are midnight UTC of
// that date. Items without a usable start are reported as not ok.
func fromGoogle(item *gcal.Event) (Event, bool) {
	if item == nil || item.Id == "" {
		return Event{}, false
	}
	start, ok := googleTime(item.Start)
	if !ok {
		return Event{}, false
	}

	title := strings.TrimSpace(item.Summary)
	if title == "" {
		title = untitled
	}
	event := Event{
		ExternalID:  item.Id,
		Title:       title,
		Description: optionalText(item.Description),
		Location:    optionalText(item.Location),
		StartAt:     start,
	}
	if end, ok := googleTime(item.End); ok {
		event.EndAt = &end
	}
	return event, true
}

func googleTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation(time.DateOnly, dt.Date, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

var _ Source = (*GoogleSource)(nil)

