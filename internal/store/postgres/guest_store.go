package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

const guestColumns = `id, site_id, name, contact, expires_at, folder_key, created_at`

// GuestStore implements store.GuestStore using PostgreSQL.
type GuestStore struct {
	pool *pgxpool.Pool
}

// NewGuestStore creates a new PostgreSQL-backed guest store.
func NewGuestStore(pool *pgxpool.Pool) *GuestStore {
	return &GuestStore{pool: pool}
}

// Create registers a guest at a site.
func (s *GuestStore) Create(ctx context.Context, guest *models.Guest) error {
	query := `
		INSERT INTO guests (site_id, name, contact, expires_at, folder_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		guest.SiteID,
		guest.Name,
		guest.Contact,
		guest.ExpiresAt,
		guest.FolderKey,
	).Scan(&guest.ID, &guest.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create guest: %w", mapPostgresError(err))
	}
	return nil
}

// Get retrieves a guest by ID.
func (s *GuestStore) Get(ctx context.Context, id int64) (*models.Guest, error) {
	return scanGuest(s.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id))
}

// ListBySite returns a site's guests ordered by expiry. A non-nil activeAt
// drops guests whose window has closed by then.
func (s *GuestStore) ListBySite(ctx context.Context, siteID int64, activeAt *time.Time) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE site_id = $1 AND ($2::TIMESTAMPTZ IS NULL OR expires_at > $2)
		ORDER BY expires_at, id
	`

	rows, err := s.pool.Query(ctx, query, siteID, activeAt)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, guest)
	}
	return guests, rows.Err()
}

// Delete removes a guest.
func (s *GuestStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanGuest(row pgx.Row) (*models.Guest, error) {
	var guest models.Guest
	err := row.Scan(
		&guest.ID,
		&guest.SiteID,
		&guest.Name,
		&guest.Contact,
		&guest.ExpiresAt,
		&guest.FolderKey,
		&guest.CreatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return &guest, nil
}
