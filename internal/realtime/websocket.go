package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/auth"
)

var errObserverClosed = errors.New("observer closed")

// TokenAuthenticator resolves an access token to a principal.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// WebSocketConfig configures the websocket endpoint.
type WebSocketConfig struct {
	// BufferSize is the number of messages queued per connection. Default: 64.
	BufferSize int
	// WriteTimeout bounds a single frame write. Default: 5s.
	WriteTimeout time.Duration
	// OriginPatterns are passed to websocket.AcceptOptions.
	OriginPatterns []string
}

// WebSocketHandler upgrades authenticated requests and streams broadcasts to them.
type WebSocketHandler struct {
	broadcaster *Broadcaster
	authn       TokenAuthenticator
	cfg         WebSocketConfig
}

// NewWebSocketHandler creates the /ws/events handler.
func NewWebSocketHandler(b *Broadcaster, authn TokenAuthenticator, cfg WebSocketConfig) *WebSocketHandler {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &WebSocketHandler{broadcaster: b, authn: authn, cfg: cfg}
}

// wsObserver queues messages for one connection. The writer goroutine in
// ServeHTTP drains the queue. A failed delivery means the broadcaster has
// dropped the observer, so evict tells the connection to close.
type wsObserver struct {
	visible auth.SiteVisibility
	out     chan Message
	done    chan struct{}
	evict   context.CancelFunc
}

func (o *wsObserver) Deliver(ctx context.Context, msg Message) error {
	if !o.visible.Allows(msg.SiteID) {
		return nil
	}
	select {
	case <-o.done:
		return errObserverClosed
	default:
	}
	select {
	case o.out <- msg:
		return nil
	case <-o.done:
		return errObserverClosed
	case <-ctx.Done():
		if o.evict != nil {
			o.evict()
		}
		return ctx.Err()
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := h.authn.Authenticate(ctx, auth.TokenFromRequest(r))
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("websocket authentication failed")
		auth.WriteUnauthorized(w)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	// client frames are discarded; CloseRead cancels ctx when the peer goes away
	ctx = conn.CloseRead(ctx)

	// cancelled when the peer goes away or the broadcaster evicts this observer
	streamCtx, evict := context.WithCancel(ctx)
	defer evict()

	obs := &wsObserver{
		visible: auth.VisibleSites(*principal),
		out:     make(chan Message, h.cfg.BufferSize),
		done:    make(chan struct{}),
		evict:   evict,
	}
	handle := h.broadcaster.Subscribe(obs)
	defer func() {
		close(obs.done)
		h.broadcaster.Unsubscribe(handle)
	}()

	logger := zerolog.Ctx(ctx).With().Int64("user_id", principal.UserID).Logger()
	logger.Debug().Msg("observer connected")

	for {
		select {
		case <-streamCtx.Done():
			if ctx.Err() != nil {
				logger.Debug().Msg("observer disconnected")
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			logger.Info().Msg("observer evicted, too slow to keep up")
			_ = conn.Close(websocket.StatusPolicyViolation, "too_slow")
			return
		case msg := <-obs.out:
			// an eviction aborts a write stuck on a stalled peer
			writeCtx, cancel := context.WithTimeout(streamCtx, h.cfg.WriteTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				logger.Debug().Err(err).Msg("observer write failed")
				_ = conn.Close(websocket.StatusInternalError, "write_failed")
				return
			}
		}
	}
}
