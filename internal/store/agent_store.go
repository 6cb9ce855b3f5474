package store

import (
	"context"
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
)

// AgentStore defines the interface for edge agent storage operations.
type AgentStore interface {
	Create(ctx context.Context, agent *models.Agent) error
	Get(ctx context.Context, id int64) (*models.Agent, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}
