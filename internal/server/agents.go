package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	httpmiddleware "github.com/wolfeidau/hostelsec/internal/http"
	"github.com/wolfeidau/hostelsec/internal/ingest"
	"github.com/wolfeidau/hostelsec/internal/models"
)

const (
	headerAgentID  = "X-Agent-Id"
	headerAgentKey = "X-Agent-Key"
)

type agentContextKey struct{}

func agentFromContext(ctx context.Context) *models.Agent {
	agent, _ := ctx.Value(agentContextKey{}).(*models.Agent)
	return agent
}

// authenticatedAgentKey buckets requests by the agent resolved by agentAuth.
func authenticatedAgentKey(r *http.Request) string {
	if agent := agentFromContext(r.Context()); agent != nil {
		return "agent:" + strconv.FormatInt(agent.ID, 10)
	}
	return httpmiddleware.ClientIPKey(r)
}

// agentAuth resolves the calling agent from its id and key headers. Every
// failure produces the same 401 response.
func (s *Server) agentAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rawID := r.Header.Get(headerAgentID)
		key := r.Header.Get(headerAgentKey)
		if rawID == "" || key == "" {
			zerolog.Ctx(ctx).Debug().Msg("missing agent credentials")
			auth.WriteUnauthorized(w)
			return
		}

		agentID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("agent_id", rawID).Msg("malformed agent id")
			auth.WriteUnauthorized(w)
			return
		}

		agent, err := s.opts.Gateway.AuthenticateAgent(ctx, agentID, key)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx = zerolog.Ctx(ctx).With().Int64("agent_id", agent.ID).Logger().WithContext(ctx)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, agentContextKey{}, agent)))
	})
}

type createAgentRequest struct {
	SiteID  int64   `json:"site_id"`
	Name    string  `json:"name"`
	Version *string `json:"version"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createAgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Name) > 200 {
		writeError(w, r, apperr.Invalid("name must be at most 200 characters"))
		return
	}

	created, err := s.opts.Gateway.CreateAgent(ctx, p, ingest.NewAgentInput{
		SiteID:  req.SiteID,
		Name:    req.Name,
		Version: req.Version,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, agentCreatedView{
		ID:      created.Agent.ID,
		SiteID:  created.Agent.SiteID,
		Name:    created.Agent.Name,
		Version: created.Agent.Version,
		APIKey:  created.APIKey,
	})
}

func (s *Server) handleAgentConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cameras, err := s.opts.Gateway.Config(ctx, agentFromContext(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCameraViews(cameras))
}

type agentEventRequest struct {
	CameraID    int64      `json:"camera_id"`
	Timestamp   *time.Time `json:"ts"`
	Type        string     `json:"type"`
	PersonName  *string    `json:"person_name"`
	Similarity  *float64   `json:"similarity"`
	EvidenceB64 *string    `json:"evidence_b64"`
}

func (s *Server) handleAgentEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req agentEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == "" {
		writeError(w, r, apperr.Invalid("type is required"))
		return
	}

	result, err := s.opts.Gateway.Ingest(ctx, agentFromContext(ctx), ingest.EventDraft{
		CameraID:    req.CameraID,
		Timestamp:   req.Timestamp,
		Type:        req.Type,
		PersonName:  req.PersonName,
		Similarity:  req.Similarity,
		EvidenceB64: req.EvidenceB64,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	ev := result.Event
	writeJSON(w, http.StatusOK, agentEventView{
		ID:          ev.ID,
		CameraID:    ev.CameraID,
		Timestamp:   ev.Timestamp,
		Type:        ev.Type,
		PersonName:  ev.PersonName,
		Similarity:  ev.Similarity,
		Status:      ev.Status,
		EvidenceKey: result.EvidenceKey,
	})
}
