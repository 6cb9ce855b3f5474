package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/hostelsec/cmd/cli/internal/credentials"
	"github.com/wolfeidau/hostelsec/internal/client"
)

// LoginCmd authenticates with a password and stores the tokens as a profile.
type LoginCmd struct {
	Server         string `help:"server URL" default:"http://localhost:8000" env:"HOSTELSEC_SERVER"`
	Email          string `help:"account email" required:"" env:"HOSTELSEC_EMAIL"`
	Password       string `help:"account password" required:"" env:"HOSTELSEC_PASSWORD"`
	Profile        string `help:"profile name to save" default:"default"`
	SetDefault     bool   `help:"make this the default profile" default:"false"`
	CredentialsDir string `help:"custom credentials directory (default: ~/.hostelsec/)" env:"HOSTELSEC_CREDENTIALS_DIR"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	cl, err := client.New(client.Config{ServerURL: c.Server, Timeout: client.DefaultConfig().Timeout, Debug: globals.Debug})
	if err != nil {
		return err
	}

	pair, err := cl.Login(ctx, c.Email, c.Password)
	if err != nil {
		if client.IsUnauthorized(err) {
			return fmt.Errorf("login failed: invalid credentials")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	profile, err := store.Save(credentials.Profile{
		Name:         c.Profile,
		Server:       cl.ServerURL(),
		Email:        c.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if c.SetDefault {
		if err := store.SetDefault(profile.Name); err != nil {
			return fmt.Errorf("failed to set default: %w", err)
		}
	}

	fmt.Fprintf(globals.out(), "Logged in to %s as %s (profile: %s)\n", profile.Server, profile.Email, profile.Name)
	return nil
}

// WhoamiCmd prints the user behind the current profile.
type WhoamiCmd struct {
	SessionFlags
}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := c.open(globals)
	if err != nil {
		return err
	}

	me, err := s.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	site := "all sites"
	if me.SiteID != nil {
		site = fmt.Sprintf("site %d", *me.SiteID)
	}

	out := globals.out()
	fmt.Fprintf(out, "Profile: %s (%s)\n", s.profile.Name, s.profile.Server)
	fmt.Fprintf(out, "User:    %s <%s> id=%d\n", me.Name, me.Email, me.ID)
	fmt.Fprintf(out, "Role:    %s in org %d, %s\n", me.Role, me.OrgID, site)
	return nil
}
