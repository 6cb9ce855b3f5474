package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// AgentStore implements store.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *pgxpool.Pool
}

// NewAgentStore creates a new PostgreSQL-backed agent store.
func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

// Create registers a new agent in the database.
func (s *AgentStore) Create(ctx context.Context, agent *models.Agent) error {
	query := `
		INSERT INTO agents (site_id, name, version, api_key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		agent.SiteID,
		agent.Name,
		agent.Version,
		agent.APIKeyHash,
	).Scan(&agent.ID, &agent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", mapPostgresError(err))
	}
	return nil
}

// Get retrieves an agent by ID.
func (s *AgentStore) Get(ctx context.Context, id int64) (*models.Agent, error) {
	query := `
		SELECT id, site_id, name, version, api_key_hash, last_seen, created_at
		FROM agents
		WHERE id = $1
	`

	var agent models.Agent
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&agent.ID,
		&agent.SiteID,
		&agent.Name,
		&agent.Version,
		&agent.APIKeyHash,
		&agent.LastSeen,
		&agent.CreatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return &agent, nil
}

// TouchLastSeen records the last time the agent called in.
func (s *AgentStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	result, err := s.pool.Exec(ctx, `UPDATE agents SET last_seen = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update agent last seen: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
