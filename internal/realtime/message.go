package realtime

import (
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// MessageType names the change an observer is told about.
type MessageType string

const (
	MessageEventCreated MessageType = "event_created"
	MessageEventUpdated MessageType = "event_updated"
)

// EventView is the wire representation of an event.
type EventView struct {
	ID              int64              `json:"id"`
	CameraID        int64              `json:"camera_id"`
	Timestamp       time.Time          `json:"ts"`
	Type            string             `json:"type"`
	PersonName      *string            `json:"person_name"`
	Similarity      *float64           `json:"similarity"`
	Status          models.EventStatus `json:"status"`
	Decision        *models.Decision   `json:"decision"`
	HandledByUserID *int64             `json:"handled_by_user_id"`
	HandledAt       *time.Time         `json:"handled_at"`
	Notes           *string            `json:"notes"`
	EvidenceKey     *string            `json:"evidence_key,omitempty"`
}

// NewEventView copies ev into its wire form.
func NewEventView(ev *models.Event) EventView {
	return EventView{
		ID:              ev.ID,
		CameraID:        ev.CameraID,
		Timestamp:       ev.Timestamp,
		Type:            ev.Type,
		PersonName:      ev.PersonName,
		Similarity:      ev.Similarity,
		Status:          ev.Status,
		Decision:        ev.Decision,
		HandledByUserID: ev.HandledByUserID,
		HandledAt:       ev.HandledAt,
		Notes:           ev.Notes,
	}
}

// Message is one broadcast. SiteID is the owning site of the event and is
// used by observers to drop messages their principal may not see.
type Message struct {
	Type   MessageType `json:"type"`
	Event  EventView   `json:"event"`
	SiteID int64       `json:"-"`
}

// EventCreated builds the notification for a freshly ingested event.
func EventCreated(ev *models.Event, siteID int64, evidenceKey *string) Message {
	view := NewEventView(ev)
	view.EvidenceKey = evidenceKey
	return Message{Type: MessageEventCreated, Event: view, SiteID: siteID}
}

// EventUpdated builds the notification for a disposition change.
func EventUpdated(ev *models.Event, siteID int64) Message {
	return Message{Type: MessageEventUpdated, Event: NewEventView(ev), SiteID: siteID}
}
