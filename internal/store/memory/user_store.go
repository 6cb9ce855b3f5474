package memory

import (
	"context"
	"sort"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
type UserStore struct {
	db *DB
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	if u.SiteID != nil {
		siteID := *u.SiteID
		clone.SiteID = &siteID
	}
	return &clone
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.organizations[user.OrgID]; !ok {
		return store.ErrInvalidReference
	}
	if user.SiteID != nil {
		if _, ok := s.db.sites[*user.SiteID]; !ok {
			return store.ErrInvalidReference
		}
	}
	for _, existing := range s.db.users {
		if existing.OrgID == user.OrgID && existing.Email == user.Email {
			return store.ErrAlreadyExists
		}
	}

	user.ID = s.db.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.db.now()
	}

	s.db.users[user.ID] = cloneUser(user)
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail returns the lowest id user with the given email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var found *models.User
	for _, u := range s.db.users {
		if u.Email != email {
			continue
		}
		if found == nil || u.ID < found.ID {
			found = u
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return cloneUser(found), nil
}

// GetByOrgEmail retrieves a user by its (org, email) key.
func (s *UserStore) GetByOrgEmail(ctx context.Context, orgID int64, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if u.OrgID == orgID && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

// List returns users ordered by id.
func (s *UserStore) List(ctx context.Context, orgID *int64) ([]*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.User
	for _, u := range s.db.users {
		if orgID != nil && u.OrgID != *orgID {
			continue
		}
		result = append(result, cloneUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
