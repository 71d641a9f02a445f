package calendar

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/emersion/go-ical"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
)

const (
	productID         = "-//tomorrowmanyers//events//EN"
	googleTemplateURL = "https://calendar.google.com/calendar/render"
	googleDateLayout  = "20060102T150405Z"
	defaultDuration   = time.Hour
)

// EndOrDefault returns the end of the event, or one hour after its start
// when it has none.
func EndOrDefault(e *models.Event) time.Time {
	if e.EndAt != nil {
		return e.EndAt.UTC()
	}
	return e.StartAt.UTC().Add(defaultDuration)
}

// ICS renders the event as an iCalendar document with a single VEVENT.
func ICS(e *models.Event, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	ve := ical.NewEvent()
	ve.Props.SetText(ical.PropUID, e.ID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartAt.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, EndOrDefault(e))
	ve.Props.SetText(ical.PropSummary, e.Title)
	if e.Description != nil && *e.Description != "" {
		ve.Props.SetText(ical.PropDescription, *e.Description)
	}
	if e.Location != nil && *e.Location != "" {
		ve.Props.SetText(ical.PropLocation, *e.Location)
	}
	ve.Props.SetText(ical.PropStatus, "CONFIRMED")
	cal.Children = append(cal.Children, ve.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return buf.Bytes(), nil
}

// GoogleTemplateURL returns a link that opens Google Calendar with the
// event prefilled.
func GoogleTemplateURL(e *models.Event) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", e.Title)
	q.Set("dates", e.StartAt.UTC().Format(googleDateLayout)+"/"+EndOrDefault(e).Format(googleDateLayout))
	if e.Description != nil {
		q.Set("details", *e.Description)
	}
	if e.Location != nil {
		q.Set("location", *e.Location)
	}
	return googleTemplateURL + "?" + q.Encode()
}
