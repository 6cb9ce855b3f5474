package store

import (
	"context"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// UserStore defines the interface for user storage operations.
type UserStore interface {
	// Create returns ErrAlreadyExists for a duplicate (org, email).
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail returns the lowest id user with that email across organizations.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOrgEmail(ctx context.Context, orgID int64, email string) (*models.User, error)

	// List returns users ordered by id, optionally restricted to one organization.
	List(ctx context.Context, orgID *int64) ([]*models.User, error)
}
