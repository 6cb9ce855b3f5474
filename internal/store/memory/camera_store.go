package memory

import (
	"context"
	"sort"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// CameraStore implements store.CameraStore using in-memory storage.
type CameraStore struct {
	db *DB
}

// Create creates a new camera in memory.
func (s *CameraStore) Create(ctx context.Context, camera *models.Camera) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sites[camera.SiteID]; !ok {
		return store.ErrInvalidReference
	}
	for _, existing := range s.db.cameras {
		if existing.SiteID == camera.SiteID && existing.Name == camera.Name {
			return store.ErrAlreadyExists
		}
	}

	camera.ID = s.db.id()
	if camera.CreatedAt.IsZero() {
		camera.CreatedAt = s.db.now()
	}

	clone := *camera
	s.db.cameras[camera.ID] = &clone
	return nil
}

// Get retrieves a camera by ID.
func (s *CameraStore) Get(ctx context.Context, id int64) (*models.Camera, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	camera, ok := s.db.cameras[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *camera
	return &clone, nil
}

// List returns cameras ordered by id.
func (s *CameraStore) List(ctx context.Context, siteID *int64) ([]*models.Camera, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Camera
	for _, camera := range s.db.cameras {
		if siteID != nil && camera.SiteID != *siteID {
			continue
		}
		clone := *camera
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetEnabled toggles whether the camera accepts new events.
func (s *CameraStore) SetEnabled(ctx context.Context, id int64, enabled bool) (*models.Camera, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	camera, ok := s.db.cameras[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	camera.Enabled = enabled

	clone := *camera
	return &clone, nil
}

// Delete deletes a camera and its events.
func (s *CameraStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.cameras[id]; !ok {
		return store.ErrNotFound
	}
	s.db.deleteCamera(id)
	return nil
}
