package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/bootstrap"
	"github.com/wolfeidau/hostelsec/internal/client"
	"github.com/wolfeidau/hostelsec/internal/events"
	"github.com/wolfeidau/hostelsec/internal/ingest"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
	"github.com/wolfeidau/hostelsec/internal/server"
	memorystore "github.com/wolfeidau/hostelsec/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct-horse"
)

type cliEnv struct {
	serverURL   string
	credDir     string
	broadcaster *realtime.Broadcaster
	camera      *models.Camera
	agentID     int64
	agentKey    string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	ctx := context.Background()

	st := memorystore.New().Stores()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}

	res, err := bootstrap.Bootstrap(ctx, st, hasher, bootstrap.Config{
		OrgName:       "Hostel",
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	require.NoError(t, err)

	site := &models.Site{OrgID: res.Organization.ID, Name: "North"}
	require.NoError(t, st.Sites.Create(ctx, site))
	camera := &models.Camera{SiteID: site.ID, Name: "front door", Role: models.CameraRoleEntry, Enabled: true}
	require.NoError(t, st.Cameras.Create(ctx, camera))

	signer, err := auth.NewHMACSigner([]byte("0123456789abcdef0123456789abcdef"), "HS256")
	require.NoError(t, err)
	codec := auth.NewCodec(signer, auth.CodecConfig{})
	broadcaster := realtime.NewBroadcaster(time.Second)
	engine := events.NewEngine(st.Events, st.Cameras, broadcaster)
	gateway := ingest.NewGateway(st, engine, nil, hasher)

	admin := auth.Principal{UserID: res.Admin.ID, OrgID: res.Organization.ID, Role: models.RoleAdmin, Scope: auth.Unscoped()}
	agent, err := gateway.CreateAgent(ctx, admin, ingest.NewAgentInput{SiteID: site.ID, Name: "edge-1"})
	require.NoError(t, err)

	srvCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(server.NewServer(server.Options{
		Version:     "test",
		Logger:      zerolog.Nop(),
		Stores:      st,
		Codec:       codec,
		Hasher:      hasher,
		Engine:      engine,
		Gateway:     gateway,
		Broadcaster: broadcaster,
	}).Handler(srvCtx))
	t.Cleanup(srv.Close)

	return &cliEnv{
		serverURL:   srv.URL,
		credDir:     t.TempDir(),
		broadcaster: broadcaster,
		camera:      camera,
		agentID:     agent.Agent.ID,
		agentKey:    agent.APIKey,
	}
}

func (e *cliEnv) session() SessionFlags {
	return SessionFlags{CredentialsDir: e.credDir, Timeout: 5 * time.Second}
}

func (e *cliEnv) agentFlags() AgentFlags {
	return AgentFlags{Server: e.serverURL, AgentID: e.agentID, AgentKey: e.agentKey, Timeout: 5 * time.Second}
}

func (e *cliEnv) login(t *testing.T) {
	t.Helper()
	var out bytes.Buffer
	cmd := &LoginCmd{Server: e.serverURL, Email: adminEmail, Password: adminPassword, Profile: "test", CredentialsDir: e.credDir}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Out: &out}))
	require.Contains(t, out.String(), "Logged in")
}

func TestLoginAndWhoami(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	var out bytes.Buffer
	cmd := &WhoamiCmd{SessionFlags: env.session()}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Out: &out}))
	assert.Contains(t, out.String(), adminEmail)
	assert.Contains(t, out.String(), "ADMIN")
	assert.Contains(t, out.String(), "all sites")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newCLIEnv(t)

	cmd := &LoginCmd{Server: env.serverURL, Email: adminEmail, Password: "wrong-password", Profile: "test", CredentialsDir: env.credDir}
	err := cmd.Run(context.Background(), &Globals{Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestCommands_RequireProfile(t *testing.T) {
	env := newCLIEnv(t)

	cmd := &ListCmd{SessionFlags: env.session()}
	err := cmd.Run(context.Background(), &Globals{Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostelsec-cli login")
}

func TestAgentPushListDispose(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)
	ctx := context.Background()

	var out bytes.Buffer
	push := &AgentPushCmd{AgentFlags: env.agentFlags(), CameraID: env.camera.ID, Type: "unknown", Person: "Visitor", MaxTries: 1}
	require.NoError(t, push.Run(ctx, &Globals{Out: &out}))
	assert.Contains(t, out.String(), "accepted")

	out.Reset()
	list := &ListCmd{SessionFlags: env.session(), Status: "open", Limit: 10}
	require.NoError(t, list.Run(ctx, &Globals{Out: &out}))
	assert.Contains(t, out.String(), "Visitor")
	assert.Contains(t, out.String(), "Total events: 1")

	evs, err := func() ([]realtime.EventView, error) {
		s, err := list.open(&Globals{})
		if err != nil {
			return nil, err
		}
		return s.client.ListEvents(ctx, client.EventQuery{})
	}()
	require.NoError(t, err)
	require.Len(t, evs, 1)

	out.Reset()
	dispose := &DisposeCmd{SessionFlags: env.session(), EventID: evs[0].ID, Status: "dealt", Decision: "entry_granted", Notes: "checked ID"}
	require.NoError(t, dispose.Run(ctx, &Globals{Out: &out}))
	assert.Contains(t, out.String(), "is now dealt")

	out.Reset()
	require.NoError(t, list.Run(ctx, &Globals{Out: &out}))
	assert.Contains(t, out.String(), "No events found.")
}

func TestAgentConfig(t *testing.T) {
	env := newCLIEnv(t)

	var out bytes.Buffer
	cmd := &AgentConfigCmd{AgentFlags: env.agentFlags()}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Out: &out}))
	assert.Contains(t, out.String(), "front door")
}

func TestAgentPush_BadKeyIsNotRetried(t *testing.T) {
	env := newCLIEnv(t)

	flags := env.agentFlags()
	flags.AgentKey = "wrong"
	cmd := &AgentPushCmd{AgentFlags: flags, CameraID: env.camera.ID, Type: "unknown", MaxTries: 5}

	start := time.Now()
	err := cmd.Run(context.Background(), &Globals{Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMonitor(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		cmd := &MonitorCmd{SessionFlags: env.session(), Count: 1}
		done <- cmd.Run(ctx, &Globals{Out: &out})
	}()

	for env.broadcaster.Len() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("monitor never subscribed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	push := &AgentPushCmd{AgentFlags: env.agentFlags(), CameraID: env.camera.ID, Type: "known", Person: "Alice", MaxTries: 1}
	require.NoError(t, push.Run(ctx, &Globals{Out: &bytes.Buffer{}}))

	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "Alice")
	assert.Contains(t, out.String(), "Monitoring finished")
}

func TestProfilesList_Empty(t *testing.T) {
	var out bytes.Buffer
	cmd := &ProfilesListCmd{CredentialsDir: t.TempDir()}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Out: &out}))
	assert.Contains(t, out.String(), "No profiles found.")
}

func TestProfilesList_ShowsSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	var out bytes.Buffer
	cmd := &ProfilesListCmd{CredentialsDir: env.credDir}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Out: &out}))
	assert.Contains(t, out.String(), "test")
	assert.Contains(t, out.String(), "active")
}

func TestClassifyPushError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPermanent bool
		wantRetryAt   bool
	}{
		{name: "nil", err: nil},
		{name: "network", err: errors.New("connection refused")},
		{name: "throttled with hint", err: &client.APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: 2 * time.Second}, wantRetryAt: true},
		{name: "throttled", err: &client.APIError{StatusCode: http.StatusTooManyRequests}},
		{name: "server", err: &client.APIError{StatusCode: http.StatusServiceUnavailable}},
		{name: "unauthorized", err: &client.APIError{StatusCode: http.StatusUnauthorized}, wantPermanent: true},
		{name: "forbidden camera", err: &client.APIError{StatusCode: http.StatusForbidden}, wantPermanent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPushError(tt.err)
			if tt.err == nil {
				require.NoError(t, got)
				return
			}

			var perm *backoff.PermanentError
			assert.Equal(t, tt.wantPermanent, errors.As(got, &perm))

			var retryAfter *backoff.RetryAfterError
			assert.Equal(t, tt.wantRetryAt, errors.As(got, &retryAfter))
		})
	}
}
