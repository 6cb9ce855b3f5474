package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	memorystore "github.com/wolfeidau/hostelsec/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

func TestBootstrap_Idempotent(t *testing.T) {
	ctx := context.Background()
	stores := memorystore.New().Stores()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	cfg := Config{
		OrgName:       "HostelOrg",
		AdminEmail:    "admin@example.com",
		AdminPassword: "correct-horse",
	}

	first, err := Bootstrap(ctx, stores, hasher, cfg)
	require.NoError(t, err)
	require.True(t, first.OrganizationCreated)
	require.True(t, first.AdminCreated)
	require.Equal(t, models.RoleAdmin, first.Admin.Role)
	require.Equal(t, "Admin", first.Admin.Name)
	require.True(t, hasher.Verify("correct-horse", first.Admin.PasswordHash))

	cfg.AdminPassword = "a-different-password"
	second, err := Bootstrap(ctx, stores, hasher, cfg)
	require.NoError(t, err)
	require.False(t, second.OrganizationCreated)
	require.False(t, second.AdminCreated)
	require.Equal(t, first.Organization.ID, second.Organization.ID)
	require.Equal(t, first.Admin.ID, second.Admin.ID)
	require.True(t, hasher.Verify("correct-horse", second.Admin.PasswordHash))

	orgs, err := stores.Organizations.List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{OrgName: "Org", AdminEmail: "a@example.com", AdminPassword: "long-enough"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing org", mutate: func(c *Config) { c.OrgName = "" }},
		{name: "bad email", mutate: func(c *Config) { c.AdminEmail = "nope" }},
		{name: "short password", mutate: func(c *Config) { c.AdminPassword = "short" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
