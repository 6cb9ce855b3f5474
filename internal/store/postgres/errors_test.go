package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: store.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_org_email_key"}, want: store.ErrAlreadyExists},
		{name: "foreign key violation", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, want: store.ErrInvalidReference},
		{name: "status check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "events_status_check"}, want: store.ErrInvalidValue},
		{name: "missing column", err: &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "camera_id"}, want: store.ErrInvalidValue},
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: store.ErrUnavailable},
		{name: "deadlock", err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, want: store.ErrUnavailable},
		{name: "too many connections", err: &pgconn.PgError{Code: pgerrcode.TooManyConnections}, want: store.ErrUnavailable},
		{name: "admin shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, want: store.ErrUnavailable},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, want: store.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPostgresError(tt.err)
			if tt.want == nil {
				require.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("unknown codes keep the driver error", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: "relation \"events\" does not exist"}
		got := mapPostgresError(pgErr)
		require.ErrorIs(t, got, pgErr)
		require.Contains(t, got.Error(), pgerrcode.UndefinedTable)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		plain := errors.New("boom")
		require.Equal(t, plain, mapPostgresError(plain))
	})
}
