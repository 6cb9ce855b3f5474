// Package ingest authenticates edge agents and turns their recognition hits
// into open events.
package ingest

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/events"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/storage"
	"github.com/wolfeidau/hostelsec/internal/store"
	"github.com/wolfeidau/hostelsec/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const evidenceContentType = "image/jpeg"

var (
	ErrUnknownAgent    = apperr.Unauthenticated("unknown-agent")
	ErrInvalidAgentKey = apperr.Unauthenticated("invalid-agent-key")
	ErrForbiddenCamera = apperr.Forbidden("forbidden-camera")
	ErrCameraDisabled  = &apperr.Error{Kind: apperr.KindValidation, Reason: "camera-disabled", Message: "Camera disabled"}
)

// EventDraft is what an agent submits for a single recognition hit.
type EventDraft struct {
	CameraID   int64
	Timestamp  *time.Time
	Type       string
	PersonName *string
	Similarity *float64
	// EvidenceB64 is an optional base64 encoded JPEG frame.
	EvidenceB64 *string
}

// Result is the outcome of a successful ingest.
type Result struct {
	Event       *models.Event
	EvidenceKey *string
}

// NewAgentInput describes an agent to register.
type NewAgentInput struct {
	SiteID  int64
	Name    string
	Version *string
}

// CreatedAgent carries the plaintext key, which is only ever returned here.
type CreatedAgent struct {
	Agent  *models.Agent
	APIKey string
}

// Gateway is the entry point for edge agents.
type Gateway struct {
	agents   store.AgentStore
	cameras  store.CameraStore
	sites    store.SiteStore
	evidence store.EvidenceStore
	engine   *events.Engine
	objects  storage.ObjectStorage
	hasher   auth.Hasher
	now      func() time.Time
}

// NewGateway creates an ingest gateway.
func NewGateway(st store.Stores, engine *events.Engine, objects storage.ObjectStorage, hasher auth.Hasher) *Gateway {
	if objects == nil {
		objects = storage.Disabled{}
	}
	return &Gateway{
		agents:   st.Agents,
		cameras:  st.Cameras,
		sites:    st.Sites,
		evidence: st.Evidence,
		engine:   engine,
		objects:  objects,
		hasher:   hasher,
		now:      time.Now,
	}
}

// AuthenticateAgent resolves an agent from its id and presented key.
func (g *Gateway) AuthenticateAgent(ctx context.Context, agentID int64, presentedKey string) (*models.Agent, error) {
	metrics := telemetry.GetMetrics()

	agent, err := g.agents.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AgentAuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "unknown")))
			return nil, ErrUnknownAgent
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	if !agent.HasKey() {
		metrics.AgentAuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no-key")))
		return nil, ErrUnknownAgent
	}

	if !g.hasher.Verify(presentedKey, *agent.APIKeyHash) {
		metrics.AgentAuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "bad-key")))
		return nil, ErrInvalidAgentKey
	}

	return agent, nil
}

// Ingest creates an open event for a camera on the agent's site. Evidence is
// best effort: a storage failure is logged and the event is still created.
func (g *Gateway) Ingest(ctx context.Context, agent *models.Agent, draft EventDraft) (*Result, error) {
	camera, err := g.cameras.Get(ctx, draft.CameraID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	// an unknown camera looks the same as one on another site
	if camera == nil || camera.SiteID != agent.SiteID {
		zerolog.Ctx(ctx).Debug().
			Int64("agent_id", agent.ID).
			Int64("camera_id", draft.CameraID).
			Msg("camera not allowed for agent")
		return nil, ErrForbiddenCamera
	}
	if !camera.Enabled {
		return nil, ErrCameraDisabled
	}

	ev := &models.Event{
		Type:       draft.Type,
		PersonName: draft.PersonName,
		Similarity: draft.Similarity,
	}
	if draft.Timestamp != nil {
		ev.Timestamp = draft.Timestamp.UTC()
	}

	var attach events.AttachFunc
	if draft.EvidenceB64 != nil && *draft.EvidenceB64 != "" {
		attach = func(ctx context.Context, ev *models.Event) *string {
			return g.attachEvidence(ctx, ev, *draft.EvidenceB64)
		}
	}

	created, evidenceKey, err := g.engine.Open(ctx, camera, ev, attach)
	if err != nil {
		return nil, err
	}

	return &Result{Event: created, EvidenceKey: evidenceKey}, nil
}

// attachEvidence stores the frame and links it to the event. Any failure is
// reported as degraded and swallowed.
func (g *Gateway) attachEvidence(ctx context.Context, ev *models.Event, evidenceB64 string) *string {
	metrics := telemetry.GetMetrics()
	logger := zerolog.Ctx(ctx)

	degraded := func(reason string, err error) *string {
		metrics.EvidenceFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		logger.Warn().Err(apperr.Degraded(reason, err)).Int64("event_id", ev.ID).Msg("evidence not attached")
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(evidenceB64)
	if err != nil {
		return degraded("evidence-decode", err)
	}

	key, err := g.objects.Put(ctx, raw, evidenceContentType)
	if err != nil {
		return degraded("evidence-put", err)
	}
	if key == "" {
		logger.Debug().Int64("event_id", ev.ID).Msg("object storage not configured, evidence dropped")
		return nil
	}

	if err := g.evidence.Create(ctx, &models.Evidence{EventID: ev.ID, ImageKey: key}); err != nil {
		return degraded("evidence-record", err)
	}

	metrics.EvidenceUploadsTotal.Add(ctx, 1)
	return &key
}

// Config returns the cameras of the agent's site and records that it called in.
func (g *Gateway) Config(ctx context.Context, agent *models.Agent) ([]*models.Camera, error) {
	if err := g.agents.TouchLastSeen(ctx, agent.ID, g.now().UTC()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("agent_id", agent.ID).Msg("failed to update agent last seen")
	}

	cameras, err := g.cameras.List(ctx, &agent.SiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	if cameras == nil {
		cameras = []*models.Camera{}
	}
	return cameras, nil
}

// CreateAgent registers an agent for a site. Only org staff may do this.
func (g *Gateway) CreateAgent(ctx context.Context, p auth.Principal, in NewAgentInput) (*CreatedAgent, error) {
	if err := auth.Require(ctx, p, auth.OrgStaff, nil); err != nil {
		return nil, err
	}

	if _, err := g.sites.Get(ctx, in.SiteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Invalid("Invalid site_id")
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := g.hasher.Hash(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash agent key: %w", err)
	}

	name := in.Name
	if name == "" {
		name = "edge-agent"
	}

	agent := &models.Agent{
		SiteID:     in.SiteID,
		Name:       name,
		Version:    in.Version,
		APIKeyHash: &hash,
		CreatedAt:  g.now().UTC(),
	}
	if err := g.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Int64("agent_id", agent.ID).
		Int64("site_id", agent.SiteID).
		Int64("created_by", p.UserID).
		Msg("agent created")

	return &CreatedAgent{Agent: agent, APIKey: apiKey}, nil
}

// GenerateAPIKey returns 32 random bytes encoded as base58.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate agent key: %w", err)
	}
	return base58.Encode(buf), nil
}
