package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

const cameraColumns = `id, site_id, name, role, stream_url, enabled, created_at`

// CameraStore implements store.CameraStore using PostgreSQL.
type CameraStore struct {
	pool *pgxpool.Pool
}

// NewCameraStore creates a new PostgreSQL-backed camera store.
func NewCameraStore(pool *pgxpool.Pool) *CameraStore {
	return &CameraStore{pool: pool}
}

// Create creates a new camera in the database.
func (s *CameraStore) Create(ctx context.Context, camera *models.Camera) error {
	query := `
		INSERT INTO cameras (site_id, name, role, stream_url, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		camera.SiteID,
		camera.Name,
		string(camera.Role),
		camera.StreamURL,
		camera.Enabled,
	).Scan(&camera.ID, &camera.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create camera: %w", mapPostgresError(err))
	}
	return nil
}

// Get retrieves a camera by ID.
func (s *CameraStore) Get(ctx context.Context, id int64) (*models.Camera, error) {
	return scanCamera(s.pool.QueryRow(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE id = $1`, id))
}

// List returns cameras ordered by id, optionally narrowed to one site.
func (s *CameraStore) List(ctx context.Context, siteID *int64) ([]*models.Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE ($1::BIGINT IS NULL OR site_id = $1) ORDER BY id`

	rows, err := s.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var cameras []*models.Camera
	for rows.Next() {
		camera, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}

// SetEnabled toggles whether the camera accepts new events.
func (s *CameraStore) SetEnabled(ctx context.Context, id int64, enabled bool) (*models.Camera, error) {
	query := `UPDATE cameras SET enabled = $2 WHERE id = $1 RETURNING ` + cameraColumns
	return scanCamera(s.pool.QueryRow(ctx, query, id, enabled))
}

// Delete deletes a camera and, via FK cascade, its events.
func (s *CameraStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM cameras WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanCamera(row pgx.Row) (*models.Camera, error) {
	var (
		camera models.Camera
		role   string
	)
	err := row.Scan(
		&camera.ID,
		&camera.SiteID,
		&camera.Name,
		&role,
		&camera.StreamURL,
		&camera.Enabled,
		&camera.CreatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	camera.Role = models.CameraRole(role)
	return &camera, nil
}
