package store

import (
	"context"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// EventStore defines the interface for access event storage operations.
type EventStore interface {
	// Create assigns ID. Returns ErrInvalidReference if the camera is missing.
	Create(ctx context.Context, event *models.Event) error
	Get(ctx context.Context, id int64) (*models.Event, error)

	// List returns events newest first. SiteID filters through the owning camera.
	List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)

	// UpdateDisposition replaces status, decision, notes, handler and handled
	// time as one unit and returns the post-update event.
	UpdateDisposition(ctx context.Context, id int64, d models.Disposition) (*models.Event, error)
}

// EvidenceStore defines the interface for append-only evidence records.
type EvidenceStore interface {
	Create(ctx context.Context, evidence *models.Evidence) error
	ListByEvent(ctx context.Context, eventID int64) ([]*models.Evidence, error)
}
