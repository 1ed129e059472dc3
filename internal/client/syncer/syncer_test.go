package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/notesync/internal/client/session"
	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/pkg/api"
)

// fakeGateway is a scriptable Gateway. syncErrs are consumed one per Sync
// call; once exhausted Sync succeeds. When blockSync is set, Sync waits on
// it before returning.
type fakeGateway struct {
	mu           sync.Mutex
	syncCalls    int
	refreshCalls int
	logoutCalls  int

	syncInFlight    int
	maxSyncInFlight int

	syncErrs   []error
	refreshErr error
	logoutErr  error

	newAccessToken  string
	lastAccessToken string

	blockSync   chan struct{}
	syncStarted chan struct{}
}

func (f *fakeGateway) authResponse(email string) *api.AuthResponse {
	return &api.AuthResponse{
		User:         api.User{ID: "u1", Email: email},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}
}

func (f *fakeGateway) Register(_ context.Context, email, _, _, _ string) (*api.AuthResponse, error) {
	return f.authResponse(email), nil
}

func (f *fakeGateway) Login(_ context.Context, email, _, _, _ string) (*api.AuthResponse, error) {
	return f.authResponse(email), nil
}

func (f *fakeGateway) Refresh(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.newAccessToken, nil
}

func (f *fakeGateway) Logout(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeGateway) Sync(_ context.Context, accessToken string) (*api.SyncResponse, error) {
	f.mu.Lock()
	f.syncCalls++
	f.syncInFlight++
	if f.syncInFlight > f.maxSyncInFlight {
		f.maxSyncInFlight = f.syncInFlight
	}
	f.lastAccessToken = accessToken
	var err error
	if len(f.syncErrs) > 0 {
		err = f.syncErrs[0]
		f.syncErrs = f.syncErrs[1:]
	}
	started := f.syncStarted
	block := f.blockSync
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.syncStarted = nil
		f.mu.Unlock()
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	f.syncInFlight--
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &api.SyncResponse{ServerTime: time.Now()}, nil
}

func (f *fakeGateway) counts() (syncs, refreshes, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncCalls, f.refreshCalls, f.logoutCalls
}

func newTestSyncer(t *testing.T, gw *fakeGateway, interval time.Duration) (*Syncer, *session.Store) {
	t.Helper()

	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := New(gw, store, logger, interval)
	t.Cleanup(s.Dispose)

	return s, store
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(&session.Session{
		UserID: "u1", Email: "a@x.com", AccessToken: "old-access", RefreshToken: "old-refresh",
	}))

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := New(&fakeGateway{}, store, logger, time.Minute)
	defer s.Dispose()

	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, "a@x.com", st.Email)
}

func TestLogin_EntersIdleAndNotifies(t *testing.T) {
	s, store := newTestSyncer(t, &fakeGateway{}, time.Minute)

	var notified atomic.Int32
	s.OnAuthChange(func() { notified.Add(1) })

	assert.Equal(t, StateDisconnected, s.Status().State)

	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))
	assert.Equal(t, StateIdle, s.Status().State)
	assert.Equal(t, int32(1), notified.Load())

	sess, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
}

func TestManualSync_NotConnected(t *testing.T) {
	s, _ := newTestSyncer(t, &fakeGateway{}, time.Minute)

	assert.ErrorIs(t, s.ManualSync(context.Background()), common.ErrNotConnected)
}

func TestManualSync_Success(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	require.NoError(t, s.ManualSync(context.Background()))

	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Empty(t, st.LastError)
	assert.WithinDuration(t, time.Now(), st.LastSyncAt, 5*time.Second)
}

func TestManualSync_SingleSlot(t *testing.T) {
	gw := &fakeGateway{
		blockSync:   make(chan struct{}),
		syncStarted: make(chan struct{}),
	}
	s, _ := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.ManualSync(context.Background()) }()

	<-gw.syncStarted
	assert.Equal(t, StateSyncing, s.Status().State)

	// The slot is taken; a concurrent request is refused, not queued.
	assert.ErrorIs(t, s.ManualSync(context.Background()), common.ErrSyncInProgress)

	close(gw.blockSync)
	require.NoError(t, <-firstDone)
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestManualSync_GuardHeldAcrossReauth(t *testing.T) {
	gw := &fakeGateway{
		blockSync:   make(chan struct{}),
		syncStarted: make(chan struct{}),
	}
	s, _ := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.ManualSync(context.Background()) }()
	<-gw.syncStarted

	// Logging out and back in while the cycle runs must not reopen the slot.
	require.NoError(t, s.Logout(context.Background()))
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	assert.ErrorIs(t, s.ManualSync(context.Background()), common.ErrSyncInProgress)

	close(gw.blockSync)
	require.NoError(t, <-firstDone)

	// The next cycle is allowed again once the first one finished.
	require.NoError(t, s.ManualSync(context.Background()))

	gw.mu.Lock()
	maxInFlight := gw.maxSyncInFlight
	gw.mu.Unlock()
	assert.Equal(t, 1, maxInFlight, "sync cycles must never overlap")
}

func TestManualSync_TransparentRefresh(t *testing.T) {
	gw := &fakeGateway{
		syncErrs:       []error{common.ErrTokenExpired},
		newAccessToken: "access-2",
	}
	s, store := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	require.NoError(t, s.ManualSync(context.Background()))

	syncs, refreshes, _ := gw.counts()
	assert.Equal(t, 2, syncs)
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, "access-2", gw.lastAccessToken)

	// The refreshed access token is persisted.
	sess, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestManualSync_RefreshRejected(t *testing.T) {
	gw := &fakeGateway{
		syncErrs:   []error{common.ErrTokenExpired},
		refreshErr: common.ErrInvalidRefreshToken,
	}
	s, store := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	var notified atomic.Int32
	s.OnAuthChange(func() { notified.Add(1) })

	err := s.ManualSync(context.Background())
	assert.ErrorIs(t, err, common.ErrAuthExpired)

	assert.Equal(t, StateDisconnected, s.Status().State)
	assert.Equal(t, int32(1), notified.Load())

	_, err = store.Get()
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestManualSync_RetryStillRejected(t *testing.T) {
	gw := &fakeGateway{
		syncErrs:       []error{common.ErrTokenExpired, common.ErrTokenExpired},
		newAccessToken: "access-2",
	}
	s, _ := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	err := s.ManualSync(context.Background())
	assert.ErrorIs(t, err, common.ErrAuthExpired)

	// Exactly one refresh attempt per cycle, never a loop.
	syncs, refreshes, _ := gw.counts()
	assert.Equal(t, 2, syncs)
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, StateDisconnected, s.Status().State)
}

func TestManualSync_NetworkErrorKeepsSession(t *testing.T) {
	gw := &fakeGateway{syncErrs: []error{common.ErrNetwork}}
	s, store := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	err := s.ManualSync(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)

	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.NotEmpty(t, st.LastError)

	_, err = store.Get()
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	gw := &fakeGateway{}
	s, store := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	var notified atomic.Int32
	s.OnAuthChange(func() { notified.Add(1) })

	require.NoError(t, s.Logout(context.Background()))

	_, _, logouts := gw.counts()
	assert.Equal(t, 1, logouts)
	assert.Equal(t, StateDisconnected, s.Status().State)
	assert.Equal(t, int32(1), notified.Load())

	_, err := store.Get()
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, s.Logout(context.Background()), common.ErrNotConnected)
}

func TestLogout_ServerFailureStillClearsLocalSession(t *testing.T) {
	gw := &fakeGateway{logoutErr: errors.New("server unreachable")}
	s, store := newTestSyncer(t, gw, time.Minute)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, StateDisconnected, s.Status().State)
	_, err := store.Get()
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPeriodicSync_DoubleStartRunsOneTicker(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newTestSyncer(t, gw, 30*time.Millisecond)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	s.StartPeriodicSync()
	s.StartPeriodicSync()
	assert.True(t, s.Status().AutoSyncOn)

	time.Sleep(100 * time.Millisecond)
	s.StopPeriodicSync()

	// A duplicated ticker would roughly double the count.
	syncs, _, _ := gw.counts()
	assert.GreaterOrEqual(t, syncs, 2)
	assert.LessOrEqual(t, syncs, 4)
	assert.False(t, s.Status().AutoSyncOn)
}

func TestPeriodicSync_SurvivesFailedCycles(t *testing.T) {
	gw := &fakeGateway{syncErrs: []error{common.ErrNetwork, common.ErrNetwork}}
	s, _ := newTestSyncer(t, gw, 20*time.Millisecond)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "pw12345678"))

	s.StartPeriodicSync()
	time.Sleep(90 * time.Millisecond)
	s.StopPeriodicSync()

	// Cycles kept firing after the two scripted failures.
	syncs, _, _ := gw.counts()
	assert.Greater(t, syncs, 2)
}

func TestStopAndDispose_Idempotent(t *testing.T) {
	s, _ := newTestSyncer(t, &fakeGateway{}, time.Minute)

	s.StopPeriodicSync()
	s.StartPeriodicSync()
	s.StopPeriodicSync()
	s.StopPeriodicSync()

	s.Dispose()
	s.Dispose()
}
