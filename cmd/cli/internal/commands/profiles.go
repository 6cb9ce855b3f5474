package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/hostelsec/cmd/cli/internal/credentials"
)

// ProfilesCmd manages stored logins.
type ProfilesCmd struct {
	List       ProfilesListCmd       `cmd:"" help:"List all profiles"`
	Show       ProfilesShowCmd       `cmd:"" help:"Show profile and token details"`
	Delete     ProfilesDeleteCmd     `cmd:"" help:"Delete a profile"`
	SetDefault ProfilesSetDefaultCmd `cmd:"" name:"set-default" help:"Set the default profile"`
}

// ProfilesListCmd lists all profiles.
type ProfilesListCmd struct {
	CredentialsDir string `help:"custom credentials directory" env:"HOSTELSEC_CREDENTIALS_DIR"`
}

func (c *ProfilesListCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	profiles, defaultName, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	out := globals.out()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To log in:")
		fmt.Fprintln(out, "  hostelsec-cli login --server <URL> --email <EMAIL>")
		return nil
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSERVER\tEMAIL\tSESSION\tDEFAULT")
	for _, p := range profiles {
		isDefault := ""
		if p.Name == defaultName {
			isDefault = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Server, p.Email, sessionState(p, now), isDefault)
	}
	return w.Flush()
}

func sessionState(p credentials.Profile, now time.Time) string {
	switch {
	case credentials.Fresh(p.AccessToken, now):
		return "active"
	case credentials.Fresh(p.RefreshToken, now):
		return "renewable"
	default:
		return "expired"
	}
}

// ProfilesShowCmd shows details of a profile.
type ProfilesShowCmd struct {
	Name           string `arg:"" optional:"" help:"profile name (default profile when empty)"`
	CredentialsDir string `help:"custom credentials directory" env:"HOSTELSEC_CREDENTIALS_DIR"`
}

func (c *ProfilesShowCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	p, err := store.Resolve(c.Name)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "Name:     %s\n", p.Name)
	fmt.Fprintf(out, "Server:   %s\n", p.Server)
	fmt.Fprintf(out, "Email:    %s\n", p.Email)
	fmt.Fprintf(out, "Session:  %s\n", sessionState(*p, time.Now()))
	fmt.Fprintf(out, "Updated:  %s\n", formatTime(p.UpdatedAt))

	for _, tok := range []struct {
		label, value string
	}{{"Access", p.AccessToken}, {"Refresh", p.RefreshToken}} {
		info, err := credentials.Inspect(tok.value)
		if err != nil {
			fmt.Fprintf(out, "%s token: unreadable\n", tok.label)
			continue
		}
		fmt.Fprintf(out, "%s token: sub=%s expires=%s\n", tok.label, info.Subject, formatTime(info.ExpiresAt))
	}
	return nil
}

// ProfilesDeleteCmd deletes a profile.
type ProfilesDeleteCmd struct {
	Name           string `arg:"" help:"profile name"`
	CredentialsDir string `help:"custom credentials directory" env:"HOSTELSEC_CREDENTIALS_DIR"`
}

func (c *ProfilesDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := store.Delete(c.Name); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	fmt.Fprintf(globals.out(), "Deleted profile: %s\n", c.Name)
	return nil
}

// ProfilesSetDefaultCmd sets the default profile.
type ProfilesSetDefaultCmd struct {
	Name           string `arg:"" help:"profile name"`
	CredentialsDir string `help:"custom credentials directory" env:"HOSTELSEC_CREDENTIALS_DIR"`
}

func (c *ProfilesSetDefaultCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(c.CredentialsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := store.SetDefault(c.Name); err != nil {
		return fmt.Errorf("failed to set default: %w", err)
	}

	fmt.Fprintf(globals.out(), "Default profile set to: %s\n", c.Name)
	return nil
}
