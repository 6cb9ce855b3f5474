package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/bootstrap"
	"github.com/wolfeidau/hostelsec/internal/logger"
)

type SeedAdminCmd struct {
	OrgName       string `help:"organization to create or reuse" default:"HostelOrg" env:"SEED_ORG"`
	AdminEmail    string `help:"admin email" default:"admin@example.com" env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `help:"admin password, only used when the admin is created" required:"" env:"SEED_ADMIN_PASSWORD"`
	AdminName     string `help:"admin display name" default:"Admin" env:"SEED_ADMIN_NAME"`

	Store StoreFlags `embed:""`
}

func (c *SeedAdminCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	stores, closeStores, err := c.Store.open(ctx, log)
	if err != nil {
		return err
	}
	defer closeStores()

	res, err := bootstrap.Bootstrap(ctx, stores, auth.NewBcryptHasher(), bootstrap.Config{
		OrgName:       c.OrgName,
		AdminEmail:    c.AdminEmail,
		AdminPassword: c.AdminPassword,
		AdminName:     c.AdminName,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	log.Info().
		Int64("org_id", res.Organization.ID).
		Str("org", res.Organization.Name).
		Int64("admin_id", res.Admin.ID).
		Str("email", res.Admin.Email).
		Msg("Seeded")
	return nil
}
