package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// mapPostgresError translates driver errors into the store sentinels so the
// HTTP boundary can classify them without knowing about Postgres.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", store.ErrAlreadyExists, pgErr.ConstraintName)

	case pgErr.Code == pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", store.ErrInvalidReference, pgErr.Detail)

	// role, status and decision columns are guarded by CHECK constraints
	case pgErr.Code == pgerrcode.CheckViolation,
		pgErr.Code == pgerrcode.NotNullViolation,
		pgErr.Code == pgerrcode.InvalidTextRepresentation:
		return fmt.Errorf("%w: %s", store.ErrInvalidValue, constraintOrMessage(pgErr))

	case pgerrcode.IsTransactionRollback(pgErr.Code),
		pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsOperatorIntervention(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code):
		return fmt.Errorf("%w: postgres %s: %s", store.ErrUnavailable, pgErr.Code, pgErr.Message)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}

func constraintOrMessage(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.Message
}
