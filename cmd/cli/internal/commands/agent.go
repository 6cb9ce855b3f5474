package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/client"
)

// AgentCmd acts as an edge agent, for commissioning cameras and testing ingest.
type AgentCmd struct {
	Config AgentConfigCmd `cmd:"" help:"Show the cameras assigned to an agent"`
	Push   AgentPushCmd   `cmd:"" help:"Submit a detection event as an agent"`
}

// AgentFlags identify the agent. The key is only shown once when the agent is created.
type AgentFlags struct {
	Server   string        `help:"server URL" default:"http://localhost:8000" env:"HOSTELSEC_SERVER"`
	AgentID  int64         `help:"agent id" required:"" env:"HOSTELSEC_AGENT_ID"`
	AgentKey string        `help:"agent API key" required:"" env:"HOSTELSEC_AGENT_KEY"`
	Timeout  time.Duration `help:"request timeout" default:"30s"`
}

func (f *AgentFlags) client(globals *Globals) (*client.Client, client.AgentCredentials, error) {
	c, err := client.New(client.Config{ServerURL: f.Server, Timeout: f.Timeout, Debug: globals.Debug})
	if err != nil {
		return nil, client.AgentCredentials{}, err
	}
	return c, client.AgentCredentials{ID: f.AgentID, Key: f.AgentKey}, nil
}

type AgentConfigCmd struct {
	AgentFlags
}

func (c *AgentConfigCmd) Run(ctx context.Context, globals *Globals) error {
	cl, creds, err := c.client(globals)
	if err != nil {
		return err
	}

	cameras, err := cl.AgentConfig(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to fetch agent config: %w", err)
	}

	out := globals.out()
	if len(cameras) == 0 {
		fmt.Fprintln(out, "No enabled cameras on this agent's site.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tSTREAM")
	for _, cam := range cameras {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cam.ID, cam.Name, cam.Role, derefString(cam.StreamURL))
	}
	return w.Flush()
}

type AgentPushCmd struct {
	AgentFlags

	CameraID   int64    `help:"camera that produced the detection" required:""`
	Type       string   `help:"recognition outcome, e.g. known or unknown" default:"unknown"`
	Person     string   `help:"recognised person name"`
	Similarity *float64 `help:"recognition similarity score"`
	Image      string   `help:"path to an evidence image to attach" type:"existingfile"`
	MaxTries   uint     `help:"attempts before giving up when the server is busy" default:"3"`
}

func (c *AgentPushCmd) Run(ctx context.Context, globals *Globals) error {
	cl, creds, err := c.client(globals)
	if err != nil {
		return err
	}

	ev, err := c.event(time.Now())
	if err != nil {
		return err
	}

	ack, err := backoff.Retry(ctx, func() (*client.AgentAck, error) {
		ack, err := cl.PushAgentEvent(ctx, creds, ev)
		return ack, classifyPushError(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("event push failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to push event: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "%s Event %d accepted (camera %d, status %s)\n", statusIcon(ack.Status), ack.ID, ack.CameraID, ack.Status)
	if ack.EvidenceKey != nil {
		fmt.Fprintf(out, "Evidence stored at %s\n", *ack.EvidenceKey)
	}
	return nil
}

func (c *AgentPushCmd) event(now time.Time) (client.AgentEvent, error) {
	ts := now.UTC()
	ev := client.AgentEvent{
		CameraID:   c.CameraID,
		Timestamp:  &ts,
		Type:       c.Type,
		Similarity: c.Similarity,
	}
	if c.Person != "" {
		ev.PersonName = &c.Person
	}
	if c.Image != "" {
		data, err := os.ReadFile(c.Image)
		if err != nil {
			return ev, fmt.Errorf("failed to read image: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		ev.EvidenceB64 = &encoded
	}
	return ev, nil
}

// classifyPushError retries throttling and server errors and gives up on
// everything the agent has to fix itself.
func classifyPushError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests && apiErr.RetryAfter > 0:
		return backoff.RetryAfter(int(apiErr.RetryAfter / time.Second))
	case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode >= 500:
		return err
	default:
		return backoff.Permanent(err)
	}
}
