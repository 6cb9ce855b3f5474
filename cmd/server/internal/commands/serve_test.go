package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validServeCmd() ServeCmd {
	return ServeCmd{
		JWT: JWTFlags{
			Secret:     strings.Repeat("x", 32),
			Alg:        "HS256",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 168 * time.Hour,
		},
	}
}

func TestServeCmd_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServeCmd)
		wantErr string
	}{
		{name: "valid", mutate: func(*ServeCmd) {}},
		{name: "missing secret", mutate: func(c *ServeCmd) { c.JWT.Secret = "" }, wantErr: "JWT secret is required"},
		{name: "short secret", mutate: func(c *ServeCmd) { c.JWT.Secret = "short" }, wantErr: "at least 32 bytes"},
		{name: "cert without key", mutate: func(c *ServeCmd) { c.Cert = "cert.pem" }, wantErr: "both --cert and --key"},
		{name: "zero ttl", mutate: func(c *ServeCmd) { c.JWT.AccessTTL = 0 }, wantErr: "lifetimes must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validServeCmd()
			tc.mutate(&cmd)
			err := cmd.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestOriginPatterns(t *testing.T) {
	require.Equal(t, []string{"*"}, originPatterns([]string{"*"}))
	require.Equal(t,
		[]string{"app.example.com", "localhost:3000"},
		originPatterns([]string{"https://app.example.com", "http://localhost:3000", "not a url"}))
}

func TestPostgresStoreFlags_RequiresConnString(t *testing.T) {
	flags := PostgresStoreFlags{}
	require.Error(t, flags.validate())

	flags.ConnString = "postgres://localhost/hostelsec"
	require.NoError(t, flags.validate())
}
