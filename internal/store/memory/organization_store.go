package memory

import (
	"context"
	"sort"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
type OrganizationStore struct {
	db *DB
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.organizations {
		if existing.Name == org.Name {
			return store.ErrAlreadyExists
		}
	}

	org.ID = s.db.id()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.db.now()
	}

	// Clone to avoid external modifications
	clone := *org
	s.db.organizations[org.ID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, id int64) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	org, exists := s.db.organizations[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	clone := *org
	return &clone, nil
}

// GetByName retrieves an organization by its unique name.
func (s *OrganizationStore) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, org := range s.db.organizations {
		if org.Name == name {
			clone := *org
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

// List returns all organizations ordered by id.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]*models.Organization, 0, len(s.db.organizations))
	for _, org := range s.db.organizations {
		clone := *org
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// Delete deletes an organization and everything it owns.
func (s *OrganizationStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.organizations[id]; !exists {
		return store.ErrNotFound
	}

	s.db.deleteOrganization(id)
	return nil
}

// SiteStore implements store.SiteStore using in-memory storage.
type SiteStore struct {
	db *DB
}

// Create creates a new site in memory.
func (s *SiteStore) Create(ctx context.Context, site *models.Site) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.organizations[site.OrgID]; !ok {
		return store.ErrInvalidReference
	}
	for _, existing := range s.db.sites {
		if existing.OrgID == site.OrgID && existing.Name == site.Name {
			return store.ErrAlreadyExists
		}
	}

	site.ID = s.db.id()
	if site.CreatedAt.IsZero() {
		site.CreatedAt = s.db.now()
	}

	clone := *site
	s.db.sites[site.ID] = &clone
	return nil
}

// Get retrieves a site by ID.
func (s *SiteStore) Get(ctx context.Context, id int64) (*models.Site, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	site, ok := s.db.sites[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *site
	return &clone, nil
}

// List returns sites matching filter ordered by id.
func (s *SiteStore) List(ctx context.Context, filter store.SiteFilter) ([]*models.Site, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Site
	for _, site := range s.db.sites {
		if filter.OrgID != nil && site.OrgID != *filter.OrgID {
			continue
		}
		if filter.SiteID != nil && site.ID != *filter.SiteID {
			continue
		}
		clone := *site
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// Delete deletes a site and everything it owns.
func (s *SiteStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sites[id]; !ok {
		return store.ErrNotFound
	}
	s.db.deleteSite(id)
	return nil
}
