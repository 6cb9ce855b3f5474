package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/models"
)

const eventColumns = `e.id, e.camera_id, e.ts, e.type, e.person_name, e.similarity, e.status, e.decision, e.handled_by_user_id, e.handled_at, e.notes`

// EventStore implements store.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new PostgreSQL-backed event store.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Create persists a new event.
func (s *EventStore) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (camera_id, ts, type, person_name, similarity, status, decision)
		VALUES ($1, COALESCE($2, NOW()), $3, $4, $5, $6, $7)
		RETURNING id, ts
	`

	var ts any
	if !event.Timestamp.IsZero() {
		ts = event.Timestamp
	}

	err := s.pool.QueryRow(ctx, query,
		event.CameraID,
		ts,
		event.Type,
		event.PersonName,
		event.Similarity,
		string(event.Status),
		decisionParam(event.Decision),
	).Scan(&event.ID, &event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("event_id", event.ID).
		Int64("camera_id", event.CameraID).
		Msg("Created event")

	return nil
}

// Get retrieves an event by ID.
func (s *EventStore) Get(ctx context.Context, id int64) (*models.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
}

// List returns events matching filter, newest first.
func (s *EventStore) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	var (
		where []string
		args  []any
	)

	query := `SELECT ` + eventColumns + ` FROM events e`
	if filter.SiteID != nil {
		query += ` JOIN cameras c ON c.id = e.camera_id`
		args = append(args, *filter.SiteID)
		where = append(where, fmt.Sprintf("c.site_id = $%d", len(args)))
	}
	if filter.CameraID != nil {
		args = append(args, *filter.CameraID)
		where = append(where, fmt.Sprintf("e.camera_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.ts DESC, e.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// UpdateDisposition replaces the disposition fields of an event in a single statement.
func (s *EventStore) UpdateDisposition(ctx context.Context, id int64, d models.Disposition) (*models.Event, error) {
	query := `
		UPDATE events e SET
			status = $2,
			decision = $3,
			notes = $4,
			handled_by_user_id = $5,
			handled_at = $6
		WHERE e.id = $1
		RETURNING ` + eventColumns

	return scanEvent(s.pool.QueryRow(ctx, query,
		id,
		string(d.Status),
		decisionParam(d.Decision),
		d.Notes,
		d.HandledByUserID,
		d.HandledAt,
	))
}

func decisionParam(d *models.Decision) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		event    models.Event
		status   string
		decision *string
	)
	err := row.Scan(
		&event.ID,
		&event.CameraID,
		&event.Timestamp,
		&event.Type,
		&event.PersonName,
		&event.Similarity,
		&status,
		&decision,
		&event.HandledByUserID,
		&event.HandledAt,
		&event.Notes,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	event.Status = models.EventStatus(status)
	if decision != nil {
		d := models.Decision(*decision)
		event.Decision = &d
	}
	return &event, nil
}

// EvidenceStore implements store.EvidenceStore using PostgreSQL.
type EvidenceStore struct {
	pool *pgxpool.Pool
}

// NewEvidenceStore creates a new PostgreSQL-backed evidence store.
func NewEvidenceStore(pool *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{pool: pool}
}

// Create appends an evidence record to an event.
func (s *EvidenceStore) Create(ctx context.Context, evidence *models.Evidence) error {
	query := `
		INSERT INTO evidence (event_id, image_key, thumb_key, annotations_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		evidence.EventID,
		evidence.ImageKey,
		evidence.ThumbKey,
		evidence.AnnotationsJSON,
	).Scan(&evidence.ID, &evidence.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create evidence: %w", mapPostgresError(err))
	}
	return nil
}

// ListByEvent returns the evidence of one event in insertion order.
func (s *EvidenceStore) ListByEvent(ctx context.Context, eventID int64) ([]*models.Evidence, error) {
	query := `
		SELECT id, event_id, image_key, thumb_key, annotations_json, created_at
		FROM evidence
		WHERE event_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Evidence
	for rows.Next() {
		var ev models.Evidence
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.ImageKey, &ev.ThumbKey, &ev.AnnotationsJSON, &ev.CreatedAt); err != nil {
			return nil, mapPostgresError(err)
		}
		result = append(result, &ev)
	}
	return result, rows.Err()
}
