package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query, org.Name).Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("org_id", org.ID).
		Str("name", org.Name).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, id int64) (*models.Organization, error) {
	query := `SELECT id, name, created_at FROM organizations WHERE id = $1`
	return scanOrganization(s.pool.QueryRow(ctx, query, id))
}

// GetByName retrieves an organization by its unique name.
func (s *OrganizationStore) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `SELECT id, name, created_at FROM organizations WHERE name = $1`
	return scanOrganization(s.pool.QueryRow(ctx, query, name))
}

// List returns all organizations ordered by id.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Delete deletes an organization by ID.
// Sites, users and everything below them are removed via FK cascades.
func (s *OrganizationStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	log.Info().
		Int64("org_id", id).
		Msg("Deleted organization")

	return nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		return nil, mapPostgresError(err)
	}
	return &org, nil
}

// SiteStore implements store.SiteStore using PostgreSQL.
type SiteStore struct {
	pool *pgxpool.Pool
}

// NewSiteStore creates a new PostgreSQL-backed site store.
func NewSiteStore(pool *pgxpool.Pool) *SiteStore {
	return &SiteStore{pool: pool}
}

// Create creates a new site in the database.
func (s *SiteStore) Create(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (org_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	if err := s.pool.QueryRow(ctx, query, site.OrgID, site.Name).Scan(&site.ID, &site.CreatedAt); err != nil {
		return fmt.Errorf("failed to create site: %w", mapPostgresError(err))
	}
	return nil
}

// Get retrieves a site by ID.
func (s *SiteStore) Get(ctx context.Context, id int64) (*models.Site, error) {
	query := `SELECT id, org_id, name, created_at FROM sites WHERE id = $1`
	return scanSite(s.pool.QueryRow(ctx, query, id))
}

// List returns sites matching filter ordered by id.
func (s *SiteStore) List(ctx context.Context, filter store.SiteFilter) ([]*models.Site, error) {
	var (
		where []string
		args  []any
	)
	if filter.OrgID != nil {
		args = append(args, *filter.OrgID)
		where = append(where, fmt.Sprintf("org_id = $%d", len(args)))
	}
	if filter.SiteID != nil {
		args = append(args, *filter.SiteID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}

	query := `SELECT id, org_id, name, created_at FROM sites`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var sites []*models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// Delete deletes a site and, via FK cascades, its cameras, agents and guests.
func (s *SiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanSite(row pgx.Row) (*models.Site, error) {
	var site models.Site
	if err := row.Scan(&site.ID, &site.OrgID, &site.Name, &site.CreatedAt); err != nil {
		return nil, mapPostgresError(err)
	}
	return &site, nil
}
