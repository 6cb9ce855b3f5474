package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const DefaultDeliveryTimeout = 5 * time.Second

// Observer receives broadcast messages. Deliver must return once ctx is done;
// any error removes the observer from the broadcaster.
type Observer interface {
	Deliver(ctx context.Context, msg Message) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, msg Message) error

func (f ObserverFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Handle identifies one subscription.
type Handle struct {
	observer Observer
}

// Publisher is the side of the broadcaster used by components that mutate events.
type Publisher interface {
	Publish(ctx context.Context, msg Message)
}

// Broadcaster fans messages out to every subscribed observer. One lock covers
// membership changes and the delivery loop of a publish.
type Broadcaster struct {
	mu        sync.Mutex
	observers map[*Handle]struct{}
	timeout   time.Duration
}

// NewBroadcaster creates a broadcaster. A zero timeout uses DefaultDeliveryTimeout.
func NewBroadcaster(deliveryTimeout time.Duration) *Broadcaster {
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}
	return &Broadcaster{
		observers: make(map[*Handle]struct{}),
		timeout:   deliveryTimeout,
	}
}

// Subscribe adds an observer and returns its handle.
func (b *Broadcaster) Subscribe(obs Observer) *Handle {
	h := &Handle{observer: obs}

	b.mu.Lock()
	b.observers[h] = struct{}{}
	b.mu.Unlock()

	telemetry.GetMetrics().ActiveObservers.Add(context.Background(), 1)
	return h
}

// Unsubscribe removes a handle. Removing an absent handle is a no-op.
func (b *Broadcaster) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}

	b.mu.Lock()
	_, ok := b.observers[h]
	delete(b.observers, h)
	b.mu.Unlock()

	if ok {
		telemetry.GetMetrics().ActiveObservers.Add(context.Background(), -1)
	}
}

// Len returns the number of live observers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Publish delivers msg to every observer at most once. Observers that fail or
// exceed the delivery timeout are removed after the loop. Failures are never
// returned to the caller.
func (b *Broadcaster) Publish(ctx context.Context, msg Message) {
	started := time.Now()
	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("type", string(msg.Type)))

	b.mu.Lock()
	defer b.mu.Unlock()

	var dead []*Handle
	for h := range b.observers {
		if err := b.deliver(ctx, h, msg); err != nil {
			log.Debug().Err(err).Str("type", string(msg.Type)).Msg("observer delivery failed")
			metrics.BroadcastDeliveryErrors.Add(ctx, 1, attrs)
			dead = append(dead, h)
		}
	}

	for _, h := range dead {
		delete(b.observers, h)
	}

	if len(dead) > 0 {
		metrics.ObserversPrunedTotal.Add(ctx, int64(len(dead)))
		metrics.ActiveObservers.Add(ctx, -int64(len(dead)))
		log.Info().Int("pruned", len(dead)).Int("remaining", len(b.observers)).Msg("pruned dead observers")
	}

	metrics.BroadcastPublishTotal.Add(ctx, 1, attrs)
	metrics.BroadcastDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
}

func (b *Broadcaster) deliver(ctx context.Context, h *Handle, msg Message) error {
	// a cancelled request must not abort delivery to everyone else
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	return h.observer.Deliver(dctx, msg)
}
