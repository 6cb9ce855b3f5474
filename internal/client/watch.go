package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

// ErrStopWatching may be returned by a WatchFunc to end the stream cleanly.
var ErrStopWatching = errors.New("stop watching")

// WatchFunc is called for every broadcast received.
type WatchFunc func(msg realtime.Message) error

// WatchEvents streams event broadcasts until ctx is cancelled, the server
// closes the connection or fn returns an error.
func (c *Client) WatchEvents(ctx context.Context, accessToken string, fn WatchFunc) error {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/events"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: &http.Client{Transport: c.httpClient.Transport},
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer conn.CloseNow()

	for {
		var msg realtime.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream: %w", err)
		}
		if err := fn(msg); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return conn.Close(websocket.StatusNormalClosure, "")
			}
			return err
		}
	}
}
