package bootstrap

import (
	"errors"
	"net/mail"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// Config describes the organization and first administrator to seed.
type Config struct {
	OrgName       string
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Validate checks that every field needed to create the admin is present.
func (c Config) Validate() error {
	if c.OrgName == "" {
		return errors.New("organization name is required")
	}
	if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
		return errors.New("admin email is invalid")
	}
	if len(c.AdminPassword) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}
	return nil
}

// Resources reports what Bootstrap found or created.
type Resources struct {
	Organization *models.Organization
	Admin        *models.User

	// Created flags are false when the entity already existed.
	OrganizationCreated bool
	AdminCreated        bool
}
