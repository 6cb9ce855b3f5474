package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/store"
	memorystore "github.com/wolfeidau/hostelsec/internal/store/memory"
	postgresstore "github.com/wolfeidau/hostelsec/internal/store/postgres"
)

// StoreFlags selects and configures the persistence backend.
type StoreFlags struct {
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"HOSTELSEC_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING,DATABASE_URL"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20" env:"HOSTELSEC_POSTGRES_MAX_CONNS"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2" env:"HOSTELSEC_POSTGRES_MIN_CONNS"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectTries    uint          `help:"startup connection attempts before giving up" default:"5"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"HOSTELSEC_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		ConnectTries:    s.ConnectTries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// open returns the configured stores and a function releasing them.
func (f *StoreFlags) open(ctx context.Context, log zerolog.Logger) (store.Stores, func(), error) {
	switch f.StoreType {
	case "postgres":
		pool, err := f.PostgresStore.openPool(ctx)
		if err != nil {
			return store.Stores{}, nil, err
		}

		if f.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return store.Stores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")
		return postgresstore.NewStores(pool), pool.Close, nil

	default:
		log.Warn().Msg("Using in-memory stores, data is lost on restart")
		return memorystore.New().Stores(), func() {}, nil
	}
}
