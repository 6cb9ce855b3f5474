package memory

import (
	"context"
	"sort"
	"time"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// GuestStore implements store.GuestStore using in-memory storage.
type GuestStore struct {
	db *DB
}

// Create registers a guest at a site.
func (s *GuestStore) Create(ctx context.Context, guest *models.Guest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sites[guest.SiteID]; !ok {
		return store.ErrInvalidReference
	}

	guest.ID = s.db.id()
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = s.db.now()
	}

	clone := *guest
	s.db.guests[guest.ID] = &clone
	return nil
}

// Get retrieves a guest by ID.
func (s *GuestStore) Get(ctx context.Context, id int64) (*models.Guest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	guest, ok := s.db.guests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *guest
	return &clone, nil
}

// ListBySite returns a site's guests ordered by expiry.
func (s *GuestStore) ListBySite(ctx context.Context, siteID int64, activeAt *time.Time) ([]*models.Guest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Guest
	for _, guest := range s.db.guests {
		if guest.SiteID != siteID {
			continue
		}
		if activeAt != nil && guest.IsExpired(*activeAt) {
			continue
		}
		clone := *guest
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ExpiresAt.Equal(result[j].ExpiresAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

// Delete removes a guest.
func (s *GuestStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.guests[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.guests, id)
	return nil
}
