package models

import (
	"fmt"
	"time"
)

// EventStatus is the triage state of an access event.
type EventStatus string

const (
	EventStatusOpen    EventStatus = "open"
	EventStatusIgnored EventStatus = "ignored"
	EventStatusDealt   EventStatus = "dealt"
)

// ParseEventStatus validates a status name.
func ParseEventStatus(s string) (EventStatus, error) {
	switch EventStatus(s) {
	case EventStatusOpen, EventStatusIgnored, EventStatusDealt:
		return EventStatus(s), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// Decision is only meaningful once an event is dealt with.
type Decision string

const (
	DecisionEntryGranted Decision = "entry_granted"
	DecisionEntryDenied  Decision = "entry_denied"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	return d == DecisionEntryGranted || d == DecisionEntryDenied
}

// Event is a recognition hit emitted by a camera.
type Event struct {
	ID              int64
	CameraID        int64
	Timestamp       time.Time
	Type            string // free-form recognition outcome, e.g. "known", "unknown"
	PersonName      *string
	Similarity      *float64
	Status          EventStatus
	Decision        *Decision
	HandledByUserID *int64
	HandledAt       *time.Time
	Notes           *string
}

// Disposition is the set of fields a single triage action replaces.
type Disposition struct {
	Status          EventStatus
	Decision        *Decision
	Notes           *string
	HandledByUserID int64
	HandledAt       time.Time
}

// Apply overwrites the disposition fields of the event.
func (e *Event) Apply(d Disposition) {
	e.Status = d.Status
	e.Decision = d.Decision
	e.Notes = d.Notes
	handler := d.HandledByUserID
	handledAt := d.HandledAt
	e.HandledByUserID = &handler
	e.HandledAt = &handledAt
}

// EventFilter narrows event listings.
type EventFilter struct {
	SiteID   *int64
	CameraID *int64
	Status   *EventStatus
	Limit    int
}

// Evidence is an append-only image reference attached to an event.
type Evidence struct {
	ID              int64
	EventID         int64
	ImageKey        string
	ThumbKey        *string
	AnnotationsJSON *string
	CreatedAt       time.Time
}
