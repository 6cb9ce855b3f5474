// Package server exposes the monitoring API over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/events"
	httpmiddleware "github.com/wolfeidau/hostelsec/internal/http"
	"github.com/wolfeidau/hostelsec/internal/ingest"
	"github.com/wolfeidau/hostelsec/internal/logger"
	"github.com/wolfeidau/hostelsec/internal/realtime"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// Options wires the server to its collaborators.
type Options struct {
	Version     string
	Logger      zerolog.Logger
	Stores      store.Stores
	Codec       *auth.Codec
	Hasher      auth.Hasher
	Engine      *events.Engine
	Gateway     *ingest.Gateway
	Broadcaster *realtime.Broadcaster

	// AgentRateLimit applies to event ingest per authenticated agent. A zero
	// rate disables limiting.
	AgentRateLimit httpmiddleware.RateLimitConfig
	// AgentAuthRateLimit applies to ingest attempts per client IP before the
	// agent key is checked. A zero rate disables limiting.
	AgentAuthRateLimit httpmiddleware.RateLimitConfig
	WebSocket      realtime.WebSocketConfig
}

// Server holds the HTTP handlers.
type Server struct {
	opts   Options
	stores store.Stores
	codec  *auth.Codec
	authn  *auth.Authenticator
	now    func() time.Time
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	return &Server{
		opts:   opts,
		stores: opts.Stores,
		codec:  opts.Codec,
		authn:  auth.NewAuthenticator(opts.Codec, opts.Stores.Users),
		now:    time.Now,
	}
}

// Handler builds the router. ctx bounds background work such as the rate
// limiter sweep.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpmiddleware.ClientIPMiddleware())
	r.Use(logger.HTTPRequests(s.opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(s.authn.Middleware()).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authn.Middleware())

		r.Post("/orgs", s.handleCreateOrganization)
		r.Get("/orgs", s.handleListOrganizations)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users", s.handleListUsers)

		r.Post("/sites", s.handleCreateSite)
		r.Get("/sites", s.handleListSites)
		r.Get("/sites/{id}", s.handleGetSite)
		r.Post("/sites/{id}/guests", s.handleCreateGuest)
		r.Get("/sites/{id}/guests", s.handleListGuests)
		r.Delete("/guests/{id}", s.handleDeleteGuest)

		r.Post("/cameras", s.handleCreateCamera)
		r.Get("/cameras", s.handleListCameras)
		r.Get("/cameras/{id}", s.handleGetCamera)
		r.Patch("/cameras/{id}", s.handleUpdateCamera)

		r.Get("/events", s.handleListEvents)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Post("/events/{id}/action", s.handleEventAction)
		r.Get("/events/{id}/evidence", s.handleListEvidence)

		r.Post("/agent/create", s.handleCreateAgent)
	})

	r.With(s.agentAuth).Get("/agent/config", s.handleAgentConfig)

	// unauthenticated attempts are charged by address so a flood never reaches
	// the key hash; an agent's own bucket is only charged once its key checks out
	var ingestChain []func(http.Handler) http.Handler
	if s.opts.AgentAuthRateLimit.RequestsPerSecond > 0 {
		ingestChain = append(ingestChain, httpmiddleware.RateLimiter(ctx, s.opts.AgentAuthRateLimit, httpmiddleware.ClientIPKey))
	}
	ingestChain = append(ingestChain, s.agentAuth)
	if s.opts.AgentRateLimit.RequestsPerSecond > 0 {
		ingestChain = append(ingestChain, httpmiddleware.RateLimiter(ctx, s.opts.AgentRateLimit, authenticatedAgentKey))
	}
	r.With(ingestChain...).Post("/agent/events", s.handleAgentEvent)

	r.Method(http.MethodGet, "/ws/events",
		realtime.NewWebSocketHandler(s.opts.Broadcaster, s.authn, s.opts.WebSocket))

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "hostelsec",
		"version": s.opts.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
