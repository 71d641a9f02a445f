package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/config"
)

// recurrenceIDLayout formats RECURRENCE-ID values in occurrence ids.
const recurrenceIDLayout = "20060102T150405Z"

// basicAuthTransport adds Basic Auth and a user agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "tomorrowmanyers/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVSource reads events from a CalDAV server. Calendar ids are
// collection paths on that server.
type CalDAVSource struct {
	client *caldav.Client
}

// NewCalDAVSource creates a client for cfg.CalDAVEndpoint.
func NewCalDAVSource(cfg config.CalendarConfig) (*CalDAVSource, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  cfg.CalDAVUsername,
		Password:  cfg.CalDAVPassword,
		Transport: http.DefaultTransport,
	}}
	client, err := caldav.NewClient(httpClient, cfg.CalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return &CalDAVSource{client: client}, nil
}

// Events implements Source. The server expands recurring events.
func (s *CalDAVSource) Events(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	from, to = from.UTC(), to.UTC()
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Props: []string{ical.PropVersion},
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
			Expand: &caldav.CalendarExpandRequest{Start: from, End: to},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := s.client.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar %s: %w", calendarID, err)
	}

	var events []Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			event, ok := fromICal(ev)
			if !ok {
				log.Debug().Str("calendar_id", calendarID).Str("path", obj.Path).Msg("Skipping event without uid or start")
				continue
			}
			events = append(events, event)
		}
	}

	log.Info().Str("calendar_id", calendarID).Int("count", len(events)).Msg("Fetched events from CalDAV")
	return events, nil
}

// fromICal converts a VEVENT. Each expanded occurrence carries a
// RECURRENCE-ID, which is appended to the UID to keep ids distinct.
func fromICal(ev ical.Event) (Event, bool) {
	uid, err := ev.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return Event{}, false
	}
	if ev.Props.Get(ical.PropDateTimeStart) == nil {
		return Event{}, false
	}
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		return Event{}, false
	}

	summary, _ := ev.Props.Text(ical.PropSummary)
	description, _ := ev.Props.Text(ical.PropDescription)
	location, _ := ev.Props.Text(ical.PropLocation)
	event := Event{
		ExternalID:  uid,
		Title:       summary,
		Description: optionalText(description),
		Location:    optionalText(location),
		StartAt:     start.UTC(),
	}
	if event.Title == "" {
		event.Title = untitled
	}

	if rid := ev.Props.Get(ical.PropRecurrenceID); rid != nil {
		if t, err := rid.DateTime(time.UTC); err == nil {
			event.ExternalID = uid + "@" + t.UTC().Format(recurrenceIDLayout)
		}
	}

	if ev.Props.Get(ical.PropDateTimeEnd) != nil || ev.Props.Get(ical.PropDuration) != nil {
		if end, err := ev.DateTimeEnd(time.UTC); err == nil {
			end = end.UTC()
			event.EndAt = &end
		}
	}
	return event, true
}

var _ Source = (*CalDAVSource)(nil)
