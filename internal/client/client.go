package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool

	// Transport is used for every HTTP call. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8000",
		Timeout:   30 * time.Second,
	}
}

// APIError is a non 2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the hostelsec REST and websocket API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client for cfg.ServerURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must use http or https, got %q", cfg.ServerURL)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}, nil
}

// ServerURL returns the normalised base URL.
func (c *Client) ServerURL() string {
	return c.baseURL.String()
}

// Login exchanges a password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	var pair auth.TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	var pair auth.TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me describes the calling user.
type Me struct {
	ID     int64       `json:"id"`
	OrgID  int64       `json:"org_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	SiteID *int64      `json:"site_id"`
}

// Me returns the user behind the access token.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// EventQuery filters ListEvents. Zero values are omitted.
type EventQuery struct {
	Status   string
	CameraID int64
	Limit    int
}

func (q EventQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.CameraID != 0 {
		v.Set("camera_id", strconv.FormatInt(q.CameraID, 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListEvents returns events visible to the caller, newest first.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]realtime.EventView, error) {
	var views []realtime.EventView
	if err := c.do(ctx, http.MethodGet, "/events", q.values(), nil, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// Disposition is the body of an event action.
type Disposition struct {
	Status   string           `json:"status"`
	Decision *models.Decision `json:"decision,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// DisposeEvent records a guard decision on an event.
func (c *Client) DisposeEvent(ctx context.Context, eventID int64, d Disposition) (*realtime.EventView, error) {
	var view realtime.EventView
	path := "/events/" + strconv.FormatInt(eventID, 10) + "/action"
	if err := c.do(ctx, http.MethodPost, path, nil, d, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// AgentCredentials authenticate an edge agent.
type AgentCredentials struct {
	ID  int64
	Key string
}

func (a AgentCredentials) header() http.Header {
	h := http.Header{}
	h.Set("X-Agent-Id", strconv.FormatInt(a.ID, 10))
	h.Set("X-Agent-Key", a.Key)
	return h
}

// AgentEvent is a detection reported by an agent.
type AgentEvent struct {
	CameraID    int64      `json:"camera_id"`
	Timestamp   *time.Time `json:"ts,omitempty"`
	Type        string     `json:"type"`
	PersonName  *string    `json:"person_name,omitempty"`
	Similarity  *float64   `json:"similarity,omitempty"`
	EvidenceB64 *string    `json:"evidence_b64,omitempty"`
}

// AgentAck is the server acknowledgement of an ingested event.
type AgentAck struct {
	ID          int64              `json:"id"`
	CameraID    int64              `json:"camera_id"`
	Timestamp   time.Time          `json:"ts"`
	Type        string             `json:"type"`
	Status      models.EventStatus `json:"status"`
	EvidenceKey *string            `json:"evidence_key,omitempty"`
}

// PushAgentEvent submits ev as the given agent.
func (c *Client) PushAgentEvent(ctx context.Context, agent AgentCredentials, ev AgentEvent) (*AgentAck, error) {
	var ack AgentAck
	if err := c.do(ctx, http.MethodPost, "/agent/events", nil, ev, agent.header(), &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// AgentCamera is one entry of the agent configuration.
type AgentCamera struct {
	ID        int64             `json:"id"`
	SiteID    int64             `json:"site_id"`
	Name      string            `json:"name"`
	Role      models.CameraRole `json:"role"`
	StreamURL *string           `json:"stream_url"`
	Enabled   bool              `json:"enabled"`
}

// AgentConfig returns the enabled cameras of the agent's site.
func (c *Client) AgentConfig(ctx context.Context, agent AgentCredentials) ([]AgentCamera, error) {
	var cameras []AgentCamera
	if err := c.do(ctx, http.MethodGet, "/agent/config", nil, nil, agent.header(), &cameras); err != nil {
		return nil, err
	}
	return cameras, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, header http.Header, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Detail = payload.Detail
	}

	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
