package store

import (
	"context"
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// GuestStore defines the interface for guest storage operations.
type GuestStore interface {
	Create(ctx context.Context, guest *models.Guest) error
	Get(ctx context.Context, id int64) (*models.Guest, error)

	// ListBySite returns guests ordered by expiry. When activeAt is set only
	// guests that have not expired at that instant are returned.
	ListBySite(ctx context.Context, siteID int64, activeAt *time.Time) ([]*models.Guest, error)
	Delete(ctx context.Context, id int64) error
}
