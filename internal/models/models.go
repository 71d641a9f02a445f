package models

import (
	"encoding/json"
	"time"
)

// User represents a registered user. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          *string   `json:"bio"`
	AvatarURL    *string   `json:"avatarUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

// UserSummary is the public projection embedded in events and RSVPs
type UserSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// Event represents a social event owned by its creator
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartAt     time.Time  `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	CreatedByID string     `json:"createdById"`
	ExternalID  *string    `json:"externalId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// RSVPStatus is the attendance answer of a user for an event
type RSVPStatus string

const (
	RSVPYes   RSVPStatus = "yes"
	RSVPNo    RSVPStatus = "no"
	RSVPMaybe RSVPStatus = "maybe"
)

// Valid reports whether s is one of the known statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}

// RSVP is the single attendance record of a user for an event
type RSVP struct {
	ID        string       `json:"id"`
	EventID   string       `json:"eventId"`
	UserID    string       `json:"userId"`
	Status    RSVPStatus   `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	User      *UserSummary `json:"user,omitempty"`
}

// RSVPCounts aggregates the RSVPs of one event by status
type RSVPCounts struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
	Total int `json:"total"`
}

// Add counts one RSVP with the given status.
func (c *RSVPCounts) Add(status RSVPStatus) {
	switch status {
	case RSVPYes:
		c.Yes++
	case RSVPNo:
		c.No++
	case RSVPMaybe:
		c.Maybe++
	}
	c.Total++
}

// EventView is an event as returned to clients: the event, its counts and,
// for authenticated viewers, the viewer's own RSVP.
type EventView struct {
	*Event
	CreatedBy *UserSummary `json:"createdBy,omitempty"`
	RSVPs     []*RSVP      `json:"rsvps,omitempty"`
	Counts    RSVPCounts   `json:"rsvpCounts"`

	// Authenticated controls whether userRSVP is present in the JSON output.
	// Anonymous viewers never see the field; authenticated viewers see null
	// when they have not responded.
	Authenticated bool  `json:"-"`
	UserRSVP      *RSVP `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (v EventView) MarshalJSON() ([]byte, error) {
	type view EventView
	if !v.Authenticated {
		return json.Marshal(view(v))
	}
	return json.Marshal(struct {
		view
		UserRSVP *RSVP `json:"userRSVP"`
	}{view: view(v), UserRSVP: v.UserRSVP})
}

// EventFilter selects events for listing
type EventFilter struct {
	From time.Time
	// AttendingUserID restricts the list to events the user answered "yes" to.
	AttendingUserID *string
	Limit           int
	Offset          int
}
