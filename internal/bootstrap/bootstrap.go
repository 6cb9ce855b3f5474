// Package bootstrap seeds the first organization and administrator.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// Bootstrap creates the organization and ADMIN user described by cfg if they
// don't exist. Existing entities are left untouched, including the admin's
// password, so running it twice is safe.
func Bootstrap(ctx context.Context, stores store.Stores, hasher auth.Hasher, cfg Config) (*Resources, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap config: %w", err)
	}
	if cfg.AdminName == "" {
		cfg.AdminName = "Admin"
	}

	res := &Resources{}

	org, err := stores.Organizations.GetByName(ctx, cfg.OrgName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		org = &models.Organization{Name: cfg.OrgName}
		if err := stores.Organizations.Create(ctx, org); err != nil {
			return nil, fmt.Errorf("failed to create organization: %w", err)
		}
		res.OrganizationCreated = true
	case err != nil:
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	res.Organization = org

	admin, err := stores.Users.GetByOrgEmail(ctx, org.ID, cfg.AdminEmail)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hash, err := hasher.Hash(cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin = &models.User{
			OrgID:        org.ID,
			Name:         cfg.AdminName,
			Email:        cfg.AdminEmail,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := stores.Users.Create(ctx, admin); err != nil {
			return nil, fmt.Errorf("failed to create admin: %w", err)
		}
		res.AdminCreated = true
	case err != nil:
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	res.Admin = admin

	log.Info().
		Int64("org_id", org.ID).
		Bool("org_created", res.OrganizationCreated).
		Int64("admin_id", admin.ID).
		Bool("admin_created", res.AdminCreated).
		Msg("bootstrap complete")

	return res, nil
}
