package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wolfeidau/hostelsec/internal/client"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

// MonitorCmd streams live event notifications over the websocket.
type MonitorCmd struct {
	SessionFlags

	OpenOnly bool `help:"only show events that still need attention" default:"false"`
	Count    int  `help:"stop after this many notifications, 0 streams until interrupted" default:"0"`
}

func (m *MonitorCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := m.open(globals)
	if err != nil {
		return err
	}

	token, err := s.transport.Token(ctx)
	if err != nil {
		return err
	}

	out := globals.out()
	fmt.Fprintf(out, "Monitoring events on %s\n", s.profile.Server)
	fmt.Fprintln(out, strings.Repeat("=", 50))

	seen := 0
	err = s.client.WatchEvents(ctx, token, func(msg realtime.Message) error {
		if m.OpenOnly && msg.Event.Status != models.EventStatusOpen {
			return nil
		}
		printMessage(out, msg)
		seen++
		if m.Count > 0 && seen >= m.Count {
			return client.ErrStopWatching
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to monitor events: %w", err)
	}

	fmt.Fprintln(out, "Monitoring finished")
	return nil
}

func printMessage(out io.Writer, msg realtime.Message) {
	ev := msg.Event
	ts := ev.Timestamp.Local().Format("15:04:05")

	switch msg.Type {
	case realtime.MessageEventCreated:
		person := derefString(ev.PersonName)
		similarity := ""
		if ev.Similarity != nil {
			similarity = fmt.Sprintf(" (%.2f)", *ev.Similarity)
		}
		evidence := ""
		if ev.EvidenceKey != nil {
			evidence = " 📷"
		}
		fmt.Fprintf(out, "[%s] %s Event %d: %s on camera %d, %s%s%s\n",
			ts, statusIcon(ev.Status), ev.ID, ev.Type, ev.CameraID, person, similarity, evidence)

	case realtime.MessageEventUpdated:
		decision := ""
		if ev.Decision != nil {
			decision = ", " + string(*ev.Decision)
		}
		handler := ""
		if ev.HandledByUserID != nil {
			handler = fmt.Sprintf(" by user %d", *ev.HandledByUserID)
		}
		fmt.Fprintf(out, "[%s] %s Event %d %s%s%s\n",
			ts, statusIcon(ev.Status), ev.ID, ev.Status, decision, handler)

	default:
		fmt.Fprintf(out, "[%s] ❓ Unknown notification: %s (event %d)\n", ts, msg.Type, ev.ID)
	}
}
