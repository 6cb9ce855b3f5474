package memory

import (
	"context"
	"sort"

	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// EventStore implements store.EventStore using in-memory storage.
type EventStore struct {
	db *DB
}

// Create creates a new event in memory.
func (s *EventStore) Create(ctx context.Context, event *models.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.cameras[event.CameraID]; !ok {
		return store.ErrInvalidReference
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.db.now()
	}

	event.ID = s.db.id()
	clone := *event
	s.db.events[event.ID] = &clone
	return nil
}

// Get retrieves an event by ID.
func (s *EventStore) Get(ctx context.Context, id int64) (*models.Event, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	event, ok := s.db.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *event
	return &clone, nil
}

// List returns events matching filter, newest first.
func (s *EventStore) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Event
	for _, event := range s.db.events {
		if filter.CameraID != nil && event.CameraID != *filter.CameraID {
			continue
		}
		if filter.Status != nil && event.Status != *filter.Status {
			continue
		}
		if filter.SiteID != nil {
			camera, ok := s.db.cameras[event.CameraID]
			if !ok || camera.SiteID != *filter.SiteID {
				continue
			}
		}
		clone := *event
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID > result[j].ID
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateDisposition replaces the disposition fields of an event atomically.
func (s *EventStore) UpdateDisposition(ctx context.Context, id int64, d models.Disposition) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	event, ok := s.db.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	updated := *event
	updated.Apply(d)
	s.db.events[id] = &updated

	clone := updated
	return &clone, nil
}

// EvidenceStore implements store.EvidenceStore using in-memory storage.
type EvidenceStore struct {
	db *DB
}

// Create appends an evidence record to an event.
func (s *EvidenceStore) Create(ctx context.Context, evidence *models.Evidence) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.events[evidence.EventID]; !ok {
		return store.ErrInvalidReference
	}

	evidence.ID = s.db.id()
	if evidence.CreatedAt.IsZero() {
		evidence.CreatedAt = s.db.now()
	}

	clone := *evidence
	s.db.evidence[evidence.ID] = &clone
	return nil
}

// ListByEvent returns the evidence of one event in insertion order.
func (s *EvidenceStore) ListByEvent(ctx context.Context, eventID int64) ([]*models.Evidence, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Evidence
	for _, ev := range s.db.evidence {
		if ev.EventID == eventID {
			clone := *ev
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
