package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockKey serialises schema changes between server replicas started
// with auto-migrate against the same database.
const migrationLockKey int64 = 0x686f7374656c

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS hostelsec_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ErrMigrationDrift is returned when an applied migration no longer matches
// the file shipped in the binary.
var ErrMigrationDrift = errors.New("applied migration differs from embedded file")

// Migration is one versioned schema file, named "<version>_<description>.sql".
type Migration struct {
	Version  int
	Name     string
	Checksum string
	sql      string
}

// MigrationState reports whether a Migration has been applied to a database.
type MigrationState struct {
	Migration
	AppliedAt *time.Time
	Drifted   bool
}

func (s MigrationState) Pending() bool { return s.AppliedAt == nil }

// EmbeddedMigrations returns the schema files compiled into the binary in
// version order.
func EmbeddedMigrations() ([]Migration, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return loadMigrations(sub)
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name must be <version>_<description>.sql", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version %q", entry.Name(), prefix)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", entry.Name(), version, other)
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     entry.Name(),
			Checksum: checksum(content),
			sql:      string(content),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

func checksum(content []byte) string {
	h := crc64nvme.New()
	_, _ = h.Write(content)
	return fmt.Sprintf("%016x", h.Sum64())
}

// RunMigrations applies every pending embedded migration, each in its own
// transaction, while holding a session advisory lock. It refuses to run when
// an applied migration has been edited since it was recorded.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := EmbeddedMigrations()
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockKey); err != nil {
			log.Warn().Err(err).Msg("failed to release migration lock")
		}
	}()

	if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", mapPostgresError(err))
	}

	states, err := migrationStates(ctx, conn, migrations)
	if err != nil {
		return err
	}

	applied := 0
	for _, st := range states {
		if st.Drifted {
			return fmt.Errorf("%w: %s", ErrMigrationDrift, st.Name)
		}
		if !st.Pending() {
			continue
		}

		start := time.Now()
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, st.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO hostelsec_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
				st.Version, st.Name, st.Checksum)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", st.Name, err)
		}

		applied++
		log.Info().Int("version", st.Version).Str("name", st.Name).Dur("took", time.Since(start)).Msg("applied migration")
	}

	log.Info().Int("applied", applied).Int("total", len(migrations)).Msg("schema up to date")
	return nil
}

// MigrationStatus compares the embedded migrations with what has been
// recorded in the database. It does not modify the database.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) ([]MigrationState, error) {
	migrations, err := EmbeddedMigrations()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var tracked bool
	if err := conn.QueryRow(ctx, `SELECT to_regclass('hostelsec_migrations') IS NOT NULL`).Scan(&tracked); err != nil {
		return nil, fmt.Errorf("failed to inspect migrations table: %w", mapPostgresError(err))
	}
	if !tracked {
		states := make([]MigrationState, len(migrations))
		for i, m := range migrations {
			states[i] = MigrationState{Migration: m}
		}
		return states, nil
	}

	return migrationStates(ctx, conn, migrations)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func migrationStates(ctx context.Context, q querier, migrations []Migration) ([]MigrationState, error) {
	type record struct {
		checksum  string
		appliedAt time.Time
	}

	rows, err := q.Query(ctx, `SELECT version, checksum, applied_at FROM hostelsec_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", mapPostgresError(err))
	}
	recorded := make(map[int]record)
	var version int
	var rec record
	_, err = pgx.ForEachRow(rows, []any{&version, &rec.checksum, &rec.appliedAt}, func() error {
		recorded[version] = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", mapPostgresError(err))
	}

	states := make([]MigrationState, len(migrations))
	for i, m := range migrations {
		states[i] = MigrationState{Migration: m}
		if r, ok := recorded[m.Version]; ok {
			appliedAt := r.appliedAt
			states[i].AppliedAt = &appliedAt
			states[i].Drifted = r.checksum != m.Checksum
			delete(recorded, m.Version)
		}
	}

	for v := range recorded {
		log.Warn().Int("version", v).Msg("database has a migration this binary does not ship")
	}

	return states, nil
}
