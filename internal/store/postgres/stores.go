package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// NewStores returns every store backed by the shared connection pool.
func NewStores(pool *pgxpool.Pool) store.Stores {
	return store.Stores{
		Organizations: NewOrganizationStore(pool),
		Sites:         NewSiteStore(pool),
		Users:         NewUserStore(pool),
		Agents:        NewAgentStore(pool),
		Cameras:       NewCameraStore(pool),
		Events:        NewEventStore(pool),
		Evidence:      NewEvidenceStore(pool),
		Guests:        NewGuestStore(pool),
	}
}
