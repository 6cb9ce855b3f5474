package memory

import (
	"context"
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// AgentStore implements store.AgentStore using in-memory storage.
type AgentStore struct {
	db *DB
}

// Create creates a new agent in memory.
func (s *AgentStore) Create(ctx context.Context, agent *models.Agent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sites[agent.SiteID]; !ok {
		return store.ErrInvalidReference
	}

	agent.ID = s.db.id()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = s.db.now()
	}

	clone := *agent
	s.db.agents[agent.ID] = &clone
	return nil
}

// Get retrieves an agent by ID.
func (s *AgentStore) Get(ctx context.Context, id int64) (*models.Agent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	agent, ok := s.db.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *agent
	return &clone, nil
}

// TouchLastSeen records the last time the agent called in.
func (s *AgentStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	agent, ok := s.db.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	agent.LastSeen = &at
	return nil
}
