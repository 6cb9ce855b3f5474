package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/hostelsec/cmd/cli/internal/credentials"
	"github.com/wolfeidau/hostelsec/internal/client"
	"github.com/wolfeidau/hostelsec/internal/models"
)

type Globals struct {
	Debug   bool
	Version string

	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// SessionFlags select the stored profile used to talk to the server.
type SessionFlags struct {
	Profile        string        `help:"profile to use (default profile when empty)" env:"HOSTELSEC_PROFILE"`
	CredentialsDir string        `help:"custom credentials directory (default: ~/.hostelsec/)" env:"HOSTELSEC_CREDENTIALS_DIR"`
	Timeout        time.Duration `help:"request timeout" default:"30s"`
}

// session is an authenticated client bound to one profile.
type session struct {
	client    *client.Client
	transport *credentials.AuthTransport
	profile   *credentials.Profile
}

func (f *SessionFlags) open(globals *Globals) (*session, error) {
	store, err := credentials.NewStore(f.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	profile, err := store.Resolve(f.Profile)
	if err != nil {
		if errors.Is(err, credentials.ErrNoDefaultProfile) {
			return nil, fmt.Errorf("no profile specified and no default set\n\n" +
				"Log in first:\n" +
				"  hostelsec-cli login --server <URL> --email <EMAIL>")
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	transport := credentials.NewAuthTransport(store, profile, nil)
	c, err := client.New(client.Config{
		ServerURL: profile.Server,
		Timeout:   f.Timeout,
		Debug:     globals.Debug,
		Transport: transport,
	})
	if err != nil {
		return nil, err
	}
	transport.SetRefresh(c.Refresh)

	return &session{client: c, transport: transport, profile: profile}, nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func statusIcon(status models.EventStatus) string {
	switch status {
	case models.EventStatusOpen:
		return "🔔"
	case models.EventStatusDealt:
		return "✅"
	case models.EventStatusIgnored:
		return "💤"
	default:
		return "❓"
	}
}

func derefString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
