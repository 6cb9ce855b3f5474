package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
	"github.com/wolfeidau/hostelsec/internal/store"
	"github.com/wolfeidau/hostelsec/internal/store/memory"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (c *capturePublisher) Publish(_ context.Context, msg realtime.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *capturePublisher) messages() []realtime.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Message(nil), c.msgs...)
}

type fixture struct {
	st     store.Stores
	engine *Engine
	pub    *capturePublisher
	site3  *models.Site
	site5  *models.Site
	cam3   *models.Camera
	cam5   *models.Camera
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New().Stores()

	org := &models.Organization{Name: "HostelOrg"}
	require.NoError(t, st.Organizations.Create(ctx, org))

	f := &fixture{st: st, pub: &capturePublisher{}}
	f.site3 = &models.Site{OrgID: org.ID, Name: "North"}
	require.NoError(t, st.Sites.Create(ctx, f.site3))
	f.site5 = &models.Site{OrgID: org.ID, Name: "South"}
	require.NoError(t, st.Sites.Create(ctx, f.site5))

	f.cam3 = &models.Camera{SiteID: f.site3.ID, Name: "door", Role: models.CameraRoleEntry, Enabled: true}
	require.NoError(t, st.Cameras.Create(ctx, f.cam3))
	f.cam5 = &models.Camera{SiteID: f.site5.ID, Name: "door", Role: models.CameraRoleEntry, Enabled: true}
	require.NoError(t, st.Cameras.Create(ctx, f.cam5))

	f.engine = NewEngine(st.Events, st.Cameras, f.pub).WithClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) open(t *testing.T, cam *models.Camera) *models.Event {
	t.Helper()
	ev, _, err := f.engine.Open(context.Background(), cam, &models.Event{Type: "unknown"}, nil)
	require.NoError(t, err)
	return ev
}

func admin() auth.Principal {
	return auth.Principal{UserID: 1, Role: models.RoleAdmin, Scope: auth.Unscoped()}
}

func guard(site int64) auth.Principal {
	return auth.Principal{UserID: 2, Role: models.RoleGuard, Scope: auth.SiteScope(site)}
}

func decision(d models.Decision) *models.Decision { return &d }

func TestDispositionInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      DispositionInput
		wantErr bool
	}{
		{name: "dealt granted", in: DispositionInput{Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryGranted)}},
		{name: "dealt denied", in: DispositionInput{Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryDenied)}},
		{name: "ignored without decision", in: DispositionInput{Status: models.EventStatusIgnored}},
		{name: "dealt without decision", in: DispositionInput{Status: models.EventStatusDealt}, wantErr: true},
		{name: "dealt with unknown decision", in: DispositionInput{Status: models.EventStatusDealt, Decision: decision("maybe")}, wantErr: true},
		{name: "ignored with decision", in: DispositionInput{Status: models.EventStatusIgnored, Decision: decision(models.DecisionEntryDenied)}, wantErr: true},
		{name: "back to open", in: DispositionInput{Status: models.EventStatusOpen}, wantErr: true},
		{name: "unknown status", in: DispositionInput{Status: "closed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidDisposition)
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestEngine_Open(t *testing.T) {
	f := newFixture(t)
	key := "evidence/2024/05/01/x.jpg"

	var attached *models.Event
	ev, gotKey, err := f.engine.Open(context.Background(), f.cam3, &models.Event{
		Type:     "known",
		Status:   models.EventStatusDealt,
		Decision: decision(models.DecisionEntryGranted),
	}, func(_ context.Context, ev *models.Event) *string {
		attached = ev
		return &key
	})
	require.NoError(t, err)

	// drafts cannot pre-dispose an event
	require.Equal(t, models.EventStatusOpen, ev.Status)
	require.Nil(t, ev.Decision)
	require.Equal(t, fixedNow, ev.Timestamp)
	require.Equal(t, ev.ID, attached.ID)
	require.Equal(t, key, *gotKey)

	msgs := f.pub.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, realtime.MessageEventCreated, msgs[0].Type)
	require.Equal(t, f.site3.ID, msgs[0].SiteID)
	require.Equal(t, key, *msgs[0].Event.EvidenceKey)
}

func TestEngine_Dispose(t *testing.T) {
	t.Run("dealt with decision succeeds and publishes", func(t *testing.T) {
		f := newFixture(t)
		ev := f.open(t, f.cam3)

		notes := "let in"
		updated, err := f.engine.Dispose(context.Background(), guard(f.site3.ID), ev.ID, DispositionInput{
			Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryGranted), Notes: &notes,
		})
		require.NoError(t, err)
		require.Equal(t, models.EventStatusDealt, updated.Status)
		require.Equal(t, models.DecisionEntryGranted, *updated.Decision)
		require.Equal(t, int64(2), *updated.HandledByUserID)
		require.Equal(t, fixedNow, *updated.HandledAt)
		require.Equal(t, "let in", *updated.Notes)

		msgs := f.pub.messages()
		require.Len(t, msgs, 2)
		require.Equal(t, realtime.MessageEventUpdated, msgs[1].Type)
		require.Equal(t, models.EventStatusDealt, msgs[1].Event.Status)
	})

	t.Run("dealt without decision fails validation", func(t *testing.T) {
		f := newFixture(t)
		ev := f.open(t, f.cam3)

		_, err := f.engine.Dispose(context.Background(), admin(), ev.ID, DispositionInput{Status: models.EventStatusDealt})
		require.ErrorIs(t, err, ErrInvalidDisposition)

		stored, err := f.st.Events.Get(context.Background(), ev.ID)
		require.NoError(t, err)
		require.Equal(t, models.EventStatusOpen, stored.Status)
		require.Len(t, f.pub.messages(), 1)
	})

	t.Run("guard on another site is denied and nothing changes", func(t *testing.T) {
		f := newFixture(t)
		ev := f.open(t, f.cam5)

		_, err := f.engine.Dispose(context.Background(), guard(f.site3.ID), ev.ID, DispositionInput{Status: models.EventStatusIgnored})
		require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		require.Equal(t, auth.ReasonGuardWrongSite, apperr.ReasonOf(err))

		stored, err := f.st.Events.Get(context.Background(), ev.ID)
		require.NoError(t, err)
		require.Equal(t, models.EventStatusOpen, stored.Status)
		require.Nil(t, stored.HandledByUserID)
		require.Len(t, f.pub.messages(), 1)
	})

	t.Run("forbidden wins over validation", func(t *testing.T) {
		f := newFixture(t)
		ev := f.open(t, f.cam5)

		_, err := f.engine.Dispose(context.Background(), guard(f.site3.ID), ev.ID, DispositionInput{Status: models.EventStatusDealt})
		require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("missing event", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Dispose(context.Background(), admin(), 999, DispositionInput{Status: models.EventStatusIgnored})
		require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("re-disposition overwrites", func(t *testing.T) {
		f := newFixture(t)
		ev := f.open(t, f.cam3)

		_, err := f.engine.Dispose(context.Background(), admin(), ev.ID, DispositionInput{
			Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryDenied),
		})
		require.NoError(t, err)

		updated, err := f.engine.Dispose(context.Background(), guard(f.site3.ID), ev.ID, DispositionInput{Status: models.EventStatusIgnored})
		require.NoError(t, err)
		require.Equal(t, models.EventStatusIgnored, updated.Status)
		require.Nil(t, updated.Decision)
		require.Equal(t, int64(2), *updated.HandledByUserID)
		require.Len(t, f.pub.messages(), 3)
	})
}

func TestEngine_ConcurrentDispositions(t *testing.T) {
	f := newFixture(t)
	ev := f.open(t, f.cam3)

	inputs := []DispositionInput{
		{Status: models.EventStatusIgnored},
		{Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryGranted)},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(inputs))
	for _, in := range inputs {
		wg.Add(1)
		go func(in DispositionInput) {
			defer wg.Done()
			_, err := f.engine.Dispose(context.Background(), admin(), ev.ID, in)
			errs <- err
		}(in)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final, err := f.st.Events.Get(context.Background(), ev.ID)
	require.NoError(t, err)

	msgs := f.pub.messages()
	require.Len(t, msgs, 3)

	// the final committed state is one of the two inputs, never a mix
	switch final.Status {
	case models.EventStatusIgnored:
		require.Nil(t, final.Decision)
	case models.EventStatusDealt:
		require.Equal(t, models.DecisionEntryGranted, *final.Decision)
	default:
		t.Fatalf("unexpected status %q", final.Status)
	}

	last := msgs[len(msgs)-1]
	require.Equal(t, realtime.MessageEventUpdated, last.Type)
	require.Equal(t, final.Status, last.Event.Status)
	require.Equal(t, final.Decision, last.Event.Decision)
}

// stallingPublisher blocks the first ignored update until release is closed.
type stallingPublisher struct {
	capturePublisher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingPublisher) Publish(ctx context.Context, msg realtime.Message) {
	if msg.Type == realtime.MessageEventUpdated && msg.Event.Status == models.EventStatusIgnored {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	s.capturePublisher.Publish(ctx, msg)
}

func TestEngine_DispositionBroadcastsFollowCommitOrder(t *testing.T) {
	f := newFixture(t)
	ev := f.open(t, f.cam3)

	pub := &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	f.engine.publisher = pub

	ctx := context.Background()
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.engine.Dispose(ctx, admin(), ev.ID, DispositionInput{Status: models.EventStatusIgnored})
		firstDone <- err
	}()
	<-pub.entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := f.engine.Dispose(ctx, admin(), ev.ID, DispositionInput{Status: models.EventStatusDealt, Decision: decision(models.DecisionEntryGranted)})
		secondDone <- err
	}()

	// the second disposition waits for the first broadcast
	select {
	case err := <-secondDone:
		t.Fatalf("second disposition finished while first broadcast was pending: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	stored, err := f.st.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventStatusDealt, stored.Status)

	msgs := pub.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, models.EventStatusIgnored, msgs[0].Event.Status)
	require.Equal(t, stored.Status, msgs[1].Event.Status)
	require.Equal(t, models.DecisionEntryGranted, *msgs[1].Event.Decision)
}

func TestEventLocks_ReleaseEntries(t *testing.T) {
	var l eventLocks
	unlock := l.lock(7)
	unlock2 := l.lock(8)
	unlock()
	unlock2()
	require.Empty(t, l.held)
}

func TestEngine_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for range 3 {
		f.open(t, f.cam3)
	}
	f.open(t, f.cam5)

	t.Run("admin sees all sites", func(t *testing.T) {
		events, err := f.engine.List(ctx, admin(), ListQuery{})
		require.NoError(t, err)
		require.Len(t, events, 4)
	})

	t.Run("guard narrowed to its site", func(t *testing.T) {
		events, err := f.engine.List(ctx, guard(f.site3.ID), ListQuery{})
		require.NoError(t, err)
		require.Len(t, events, 3)
		for _, ev := range events {
			require.Equal(t, f.cam3.ID, ev.CameraID)
		}
	})

	t.Run("unassigned guard gets an empty list", func(t *testing.T) {
		p := auth.Principal{UserID: 3, Role: models.RoleGuard, Scope: auth.Unscoped()}
		events, err := f.engine.List(ctx, p, ListQuery{})
		require.NoError(t, err)
		require.NotNil(t, events)
		require.Empty(t, events)
	})

	t.Run("limit and status filter", func(t *testing.T) {
		events, err := f.engine.List(ctx, admin(), ListQuery{Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)

		dealt := models.EventStatusDealt
		events, err = f.engine.List(ctx, admin(), ListQuery{Status: &dealt})
		require.NoError(t, err)
		require.Empty(t, events)
	})
}

func TestEngine_Get(t *testing.T) {
	f := newFixture(t)
	ev := f.open(t, f.cam5)

	got, err := f.engine.Get(context.Background(), admin(), ev.ID)
	require.NoError(t, err)
	require.Equal(t, ev.ID, got.ID)

	_, err = f.engine.Get(context.Background(), guard(f.site3.ID), ev.ID)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
