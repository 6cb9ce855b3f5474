// Package events implements the access event lifecycle: opening events from
// ingest, guard dispositions and scoped listings. Every state change is
// followed by a broadcast of the resulting event.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
	"github.com/wolfeidau/hostelsec/internal/store"
	"github.com/wolfeidau/hostelsec/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ErrInvalidDisposition is returned when a status/decision pair breaks the
// disposition rules. The message tells the caller what to fix.
var ErrInvalidDisposition = &apperr.Error{Kind: apperr.KindValidation, Reason: "invalid-disposition"}

// DispositionInput is a guard's resolution of an event.
type DispositionInput struct {
	Status   models.EventStatus
	Decision *models.Decision
	Notes    *string
}

// Validate checks the status/decision pairing. Only ignored and dealt are
// legal targets, dealt requires a known decision and ignored forbids one.
func (in DispositionInput) Validate() error {
	switch in.Status {
	case models.EventStatusDealt:
		if in.Decision == nil || !in.Decision.Valid() {
			return ErrInvalidDisposition.WithMessage("decision required when status=dealt")
		}
	case models.EventStatusIgnored:
		if in.Decision != nil {
			return ErrInvalidDisposition.WithMessage("decision only allowed when status=dealt")
		}
	default:
		return ErrInvalidDisposition.WithMessage("status must be one of ignored, dealt")
	}
	return nil
}

// ListQuery narrows an event listing.
type ListQuery struct {
	Status   *models.EventStatus
	CameraID *int64
	Limit    int
}

// AttachFunc stores evidence for a freshly created event and returns its key,
// or nil when nothing was attached.
type AttachFunc func(ctx context.Context, ev *models.Event) *string

// Engine owns every mutation of an event's lifecycle.
type Engine struct {
	events    store.EventStore
	cameras   store.CameraStore
	publisher realtime.Publisher
	now       func() time.Time
	locks     eventLocks
}

// NewEngine creates an engine over the event and camera stores.
func NewEngine(events store.EventStore, cameras store.CameraStore, publisher realtime.Publisher) *Engine {
	return &Engine{
		events:    events,
		cameras:   cameras,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Open persists a new event on camera in status open with no decision, runs
// attach and then publishes event_created. The camera's site must already have
// been checked by the caller.
func (e *Engine) Open(ctx context.Context, camera *models.Camera, draft *models.Event, attach AttachFunc) (*models.Event, *string, error) {
	ev := &models.Event{
		CameraID:   camera.ID,
		Timestamp:  draft.Timestamp,
		Type:       draft.Type,
		PersonName: draft.PersonName,
		Similarity: draft.Similarity,
		Status:     models.EventStatusOpen,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}

	if err := e.events.Create(ctx, ev); err != nil {
		return nil, nil, fmt.Errorf("failed to create event: %w", err)
	}

	var evidenceKey *string
	if attach != nil {
		evidenceKey = attach(ctx, ev)
	}

	telemetry.GetMetrics().EventsOpenedTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Info().
		Int64("event_id", ev.ID).
		Int64("camera_id", camera.ID).
		Int64("site_id", camera.SiteID).
		Str("type", ev.Type).
		Msg("event opened")

	e.publisher.Publish(ctx, realtime.EventCreated(ev, camera.SiteID, evidenceKey))

	return ev, evidenceKey, nil
}

// Dispose applies a disposition to an event on behalf of p. Re-disposing an
// already handled event overwrites it.
func (e *Engine) Dispose(ctx context.Context, p auth.Principal, eventID int64, in DispositionInput) (*models.Event, error) {
	// observers must see dispositions of one event in commit order
	unlock := e.locks.lock(eventID)
	defer unlock()

	ev, camera, err := e.load(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := auth.Require(ctx, p, auth.AnyRole, &camera.SiteID); err != nil {
		return nil, err
	}

	metrics := telemetry.GetMetrics()
	if err := in.Validate(); err != nil {
		metrics.EventsRejectedTotal.Add(ctx, 1)
		return nil, err
	}

	updated, err := e.events.UpdateDisposition(ctx, eventID, models.Disposition{
		Status:          in.Status,
		Decision:        in.Decision,
		Notes:           in.Notes,
		HandledByUserID: p.UserID,
		HandledAt:       e.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("event")
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	if ev.Status != models.EventStatusOpen {
		prev := logger.Info().
			Int64("event_id", ev.ID).
			Str("previous_status", string(ev.Status))
		if ev.Decision != nil {
			prev = prev.Str("previous_decision", string(*ev.Decision))
		}
		if ev.HandledByUserID != nil {
			prev = prev.Int64("previous_handler", *ev.HandledByUserID)
		}
		prev.Msg("event re-disposed")
	}

	metrics.EventsDisposedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(in.Status))))
	logger.Info().
		Int64("event_id", updated.ID).
		Int64("user_id", p.UserID).
		Str("status", string(updated.Status)).
		Msg("event disposed")

	e.publisher.Publish(ctx, realtime.EventUpdated(updated, camera.SiteID))

	return updated, nil
}

// Get returns one event if p may see its site.
func (e *Engine) Get(ctx context.Context, p auth.Principal, eventID int64) (*models.Event, error) {
	ev, camera, err := e.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := auth.Require(ctx, p, auth.AnyRole, &camera.SiteID); err != nil {
		return nil, err
	}
	return ev, nil
}

// List returns events visible to p, newest first. Guards without a site get
// an empty list.
func (e *Engine) List(ctx context.Context, p auth.Principal, q ListQuery) ([]*models.Event, error) {
	if err := auth.Require(ctx, p, auth.AnyRole, nil); err != nil {
		return nil, err
	}

	visible := auth.VisibleSites(p)
	if visible.Empty {
		return []*models.Event{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	events, err := e.events.List(ctx, models.EventFilter{
		SiteID:   visible.SiteID,
		CameraID: q.CameraID,
		Status:   q.Status,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []*models.Event{}
	}
	return events, nil
}

func (e *Engine) load(ctx context.Context, eventID int64) (*models.Event, *models.Camera, error) {
	ev, err := e.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("event")
		}
		return nil, nil, fmt.Errorf("failed to get event: %w", err)
	}

	camera, err := e.cameras.Get(ctx, ev.CameraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("camera for event")
		}
		return nil, nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return ev, camera, nil
}

// eventLocks hands out one mutex per event id, dropped once nobody holds it.
type eventLocks struct {
	mu   sync.Mutex
	held map[int64]*eventLock
}

type eventLock struct {
	sync.Mutex
	refs int
}

func (l *eventLocks) lock(id int64) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*eventLock)
	}
	el, ok := l.held[id]
	if !ok {
		el = &eventLock{}
		l.held[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.Lock()
	return func() {
		el.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
