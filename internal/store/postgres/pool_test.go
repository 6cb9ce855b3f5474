package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_ApplyDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/hostelsec", MaxConns: 8}
	cfg.ApplyDefaults()

	require.Equal(t, int32(8), cfg.MaxConns)
	require.Equal(t, int32(2), cfg.MinConns)
	require.Equal(t, time.Hour, cfg.MaxConnLifetime)
	require.Equal(t, 30*time.Minute, cfg.MaxConnIdleTime)
	require.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.Equal(t, uint(5), cfg.ConnectTries)
	require.NoError(t, cfg.Validate())
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  PoolConfig
	}{
		{name: "missing conn string", cfg: PoolConfig{MaxConns: 1, MinConns: 1}},
		{name: "min above max", cfg: PoolConfig{ConnString: "postgres://x", MaxConns: 1, MinConns: 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.cfg.Validate())
		})
	}
}

func TestNewPool_RejectsInvalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{})
	require.ErrorContains(t, err, "connection string is required")
}
