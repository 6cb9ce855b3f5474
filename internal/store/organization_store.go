package store

import (
	"context"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// OrganizationStore defines the interface for organization storage operations.
type OrganizationStore interface {
	// Create assigns ID and CreatedAt. Returns ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, org *models.Organization) error

	// Get returns ErrNotFound if the organization doesn't exist.
	Get(ctx context.Context, id int64) (*models.Organization, error)

	// GetByName returns ErrNotFound if no organization has that name.
	GetByName(ctx context.Context, name string) (*models.Organization, error)

	// List returns every organization ordered by id.
	List(ctx context.Context) ([]*models.Organization, error)

	// Delete cascades to sites, users and everything they own.
	Delete(ctx context.Context, id int64) error
}

// SiteFilter narrows site listings. Nil fields mean no restriction.
type SiteFilter struct {
	OrgID  *int64
	SiteID *int64
}

// SiteStore defines the interface for site storage operations.
type SiteStore interface {
	// Create returns ErrAlreadyExists for a duplicate (org, name) and
	// ErrInvalidReference when the organization is missing.
	Create(ctx context.Context, site *models.Site) error
	Get(ctx context.Context, id int64) (*models.Site, error)
	List(ctx context.Context, filter SiteFilter) ([]*models.Site, error)

	// Delete cascades to cameras, events, agents and guests. Users scoped to
	// the site lose their assignment.
	Delete(ctx context.Context, id int64) error
}
