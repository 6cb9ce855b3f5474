package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/models"
)

const userColumns = `id, org_id, site_id, name, email, password_hash, role, is_active, created_at`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create creates a new user in the database.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (org_id, site_id, name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		user.OrgID,
		user.SiteID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("user_id", user.ID).
		Int64("org_id", user.OrgID).
		Str("role", string(user.Role)).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns the lowest id user with the given email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY id LIMIT 1`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// GetByOrgEmail retrieves a user by its (org, email) key.
func (s *UserStore) GetByOrgEmail(ctx context.Context, orgID int64, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE org_id = $1 AND email = $2`
	return scanUser(s.pool.QueryRow(ctx, query, orgID, email))
}

// List returns users ordered by id, optionally narrowed to one organization.
func (s *UserStore) List(ctx context.Context, orgID *int64) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ($1::BIGINT IS NULL OR org_id = $1) ORDER BY id`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.OrgID,
		&u.SiteID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	u.Role = models.Role(role)
	return &u, nil
}
