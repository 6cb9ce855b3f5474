package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/hostelsec/internal/client"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

type ListCmd struct {
	SessionFlags

	Status   string        `help:"status to filter by" enum:",open,ignored,dealt" default:""`
	CameraID int64         `help:"camera to filter by" default:"0"`
	Limit    int           `help:"maximum events to show" default:"50"`
	Watch    bool          `help:"refresh the list periodically" default:"false"`
	Interval time.Duration `help:"refresh interval for --watch" default:"5s"`
}

func (l *ListCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := l.open(globals)
	if err != nil {
		return err
	}

	if l.Watch {
		return l.watchEvents(ctx, s.client, globals.out())
	}
	return l.listEvents(ctx, s.client, globals.out())
}

func (l *ListCmd) query() client.EventQuery {
	return client.EventQuery{Status: l.Status, CameraID: l.CameraID, Limit: l.Limit}
}

func (l *ListCmd) listEvents(ctx context.Context, c *client.Client, out io.Writer) error {
	evs, err := c.ListEvents(ctx, l.query())
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	l.printEvents(out, evs)
	return nil
}

func (l *ListCmd) watchEvents(ctx context.Context, c *client.Client, out io.Writer) error {
	fmt.Fprintln(out, "Watching events (press Ctrl+C to stop)...")
	fmt.Fprintln(out)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	if err := l.listEvents(ctx, c, out); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Fprint(out, "\033[2J\033[H")
			fmt.Fprintf(out, "Events (updated at %s)\n\n", time.Now().Format("15:04:05"))

			if err := l.listEvents(ctx, c, out); err != nil {
				fmt.Fprintf(out, "Error updating event list: %v\n", err)
			}
		}
	}
}

func (l *ListCmd) printEvents(out io.Writer, evs []realtime.EventView) {
	statusFilter := l.Status
	if statusFilter == "" {
		statusFilter = "all"
	}
	fmt.Fprintf(out, "Events (status: %s):\n", statusFilter)

	if len(evs) == 0 {
		fmt.Fprintln(out, "No events found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tCAMERA\tTYPE\tPERSON\tSTATUS\tDECISION")
	for _, ev := range evs {
		decision := "-"
		if ev.Decision != nil {
			decision = string(*ev.Decision)
		}

		person := derefString(ev.PersonName)
		if len(person) > 20 {
			person = person[:17] + "..."
		}

		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s %s\t%s\n",
			ev.ID, formatTime(ev.Timestamp), ev.CameraID, ev.Type, person,
			statusIcon(ev.Status), ev.Status, decision)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal events: %d\n", len(evs))
}

// DisposeCmd records a guard decision on an event.
type DisposeCmd struct {
	SessionFlags

	EventID  int64  `arg:"" help:"event to dispose"`
	Status   string `help:"new status" enum:"ignored,dealt" required:""`
	Decision string `help:"entry decision for dealt events" enum:",entry_granted,entry_denied" default:""`
	Notes    string `help:"free text notes"`
}

func (d *DisposeCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := d.open(globals)
	if err != nil {
		return err
	}

	req := client.Disposition{Status: d.Status}
	if d.Decision != "" {
		decision := models.Decision(d.Decision)
		req.Decision = &decision
	}
	if notes := strings.TrimSpace(d.Notes); notes != "" {
		req.Notes = &notes
	}

	ev, err := s.client.DisposeEvent(ctx, d.EventID, req)
	if err != nil {
		return fmt.Errorf("failed to dispose event %d: %w", d.EventID, err)
	}

	fmt.Fprintf(globals.out(), "%s Event %d is now %s\n", statusIcon(ev.Status), ev.ID, ev.Status)
	return nil
}
