package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func issueAt(t *testing.T, at time.Time, kind auth.TokenKind) string {
	t.Helper()
	signer, err := auth.NewHMACSigner(testSecret, "HS256")
	require.NoError(t, err)

	codec := auth.NewCodec(signer, auth.CodecConfig{AccessTTL: 30 * time.Minute, RefreshTTL: 24 * time.Hour}).
		WithClock(func() time.Time { return at })
	token, err := codec.Issue(42, auth.SiteScope(3), kind)
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	token := issueAt(t, issued, auth.TokenAccess)

	info, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, auth.FormatSubject(42, auth.SiteScope(3)), info.Subject)
	assert.Equal(t, auth.TokenAccess, info.Kind)
	assert.True(t, info.ExpiresAt.Equal(issued.Add(30*time.Minute)))

	_, err = Inspect("not-a-token")
	assert.Error(t, err)
}

func TestFresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "empty", token: "", want: false},
		{name: "garbage", token: "abc", want: false},
		{name: "new", token: issueAt(t, now, auth.TokenAccess), want: true},
		{name: "inside skew", token: issueAt(t, now.Add(-29*time.Minute-30*time.Second), auth.TokenAccess), want: false},
		{name: "expired", token: issueAt(t, now.Add(-time.Hour), auth.TokenAccess), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fresh(tt.token, now))
		})
	}
}
