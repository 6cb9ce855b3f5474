package store

import (
	"context"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// CameraStore defines the interface for camera storage operations.
type CameraStore interface {
	// Create returns ErrAlreadyExists for a duplicate (site, name).
	Create(ctx context.Context, camera *models.Camera) error
	Get(ctx context.Context, id int64) (*models.Camera, error)

	// List returns cameras ordered by id, optionally restricted to one site.
	List(ctx context.Context, siteID *int64) ([]*models.Camera, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (*models.Camera, error)

	// Delete cascades to the camera's events and their evidence.
	Delete(ctx context.Context, id int64) error
}
