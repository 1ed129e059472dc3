// Package syncer coordinates periodic synchronization with the server. It
// owns the client's auth state machine (Disconnected, Idle, Syncing), the
// single-slot sync guard, and the one transparent token refresh a cycle is
// allowed before the session is declared expired.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/akarpenko/notesync/internal/client/session"
	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/pkg/api"
)

type State int

const (
	StateDisconnected State = iota
	StateIdle
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	default:
		return "disconnected"
	}
}

// Gateway is the server surface the orchestrator needs. The api.Client
// satisfies it; tests substitute fakes.
type Gateway interface {
	Register(ctx context.Context, email, password, deviceID, deviceName string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password, deviceID, deviceName string) (*api.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Sync(ctx context.Context, accessToken string) (*api.SyncResponse, error)
}

// SessionStore is the persistence surface the orchestrator needs.
// *session.Store satisfies it.
type SessionStore interface {
	DeviceID() (string, error)
	Save(*session.Session) error
	Get() (*session.Session, error)
	UpdateAccessToken(accessToken string) error
	Clear() error
}

// Status is a point-in-time snapshot; reading it never touches the network.
type Status struct {
	State      State
	Email      string
	AutoSyncOn bool
	LastSyncAt time.Time
	LastError  string
}

type Syncer struct {
	gateway      Gateway
	store        SessionStore
	logger       logging.Logger
	syncInterval time.Duration

	mu           sync.Mutex
	state        State
	syncInFlight bool
	session      *session.Session
	lastSyncAt   time.Time
	lastErr      error

	periodicStop chan struct{}
	wg           sync.WaitGroup

	onAuthChange func()
}

// New builds a Syncer. A session persisted by a previous run is restored,
// so the client starts Idle with the old token pair still in force.
func New(gateway Gateway, store SessionStore, logger logging.Logger, syncInterval time.Duration) *Syncer {
	s := &Syncer{
		gateway:      gateway,
		store:        store,
		logger:       logger,
		syncInterval: syncInterval,
		state:        StateDisconnected,
	}

	if sess, err := store.Get(); err == nil {
		s.session = sess
		s.state = StateIdle
	}

	return s
}

// OnAuthChange registers the single callback fired after every auth state
// transition (login, logout, session expiry). Must be set before the
// periodic timer starts.
func (s *Syncer) OnAuthChange(fn func()) {
	s.onAuthChange = fn
}

func (s *Syncer) notifyAuthChange() {
	if s.onAuthChange != nil {
		s.onAuthChange()
	}
}

// Register creates an account and enters the Idle state.
func (s *Syncer) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, email, password, s.gateway.Register)
}

// Login authenticates an existing account and enters the Idle state.
func (s *Syncer) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, email, password, s.gateway.Login)
}

type authCall func(ctx context.Context, email, password, deviceID, deviceName string) (*api.AuthResponse, error)

func (s *Syncer) authenticate(ctx context.Context, email, password string, call authCall) error {
	deviceID, err := s.store.DeviceID()
	if err != nil {
		return err
	}

	resp, err := call(ctx, email, password, deviceID, deviceName())
	if err != nil {
		return err
	}

	sess := &session.Session{
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if err := s.store.Save(sess); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.state = StateIdle
	s.lastErr = nil
	s.mu.Unlock()

	s.notifyAuthChange()
	return nil
}

// Logout revokes the refresh token on the server (best effort), clears the
// local session, stops the periodic timer, and enters Disconnected.
func (s *Syncer) Logout(ctx context.Context) error {
	s.StopPeriodicSync()

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		return common.ErrNotConnected
	}

	if err := s.gateway.Logout(ctx, sess.RefreshToken); err != nil {
		// Local logout proceeds; the row expires server-side anyway.
		s.logger.Warn(ctx, "server logout failed", "error", err.Error())
	}

	if err := s.store.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.notifyAuthChange()
	return nil
}

// ManualSync runs one synchronization cycle. Only one cycle may be in
// flight: a second call returns common.ErrSyncInProgress. The in-flight
// slot is held by the cycle itself, not derived from the auth state, so
// logout/login transitions while a cycle runs cannot reopen it. A cycle
// that has started always runs to completion.
func (s *Syncer) ManualSync(ctx context.Context) error {
	s.mu.Lock()
	if s.syncInFlight {
		s.mu.Unlock()
		return common.ErrSyncInProgress
	}
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return common.ErrNotConnected
	}
	s.syncInFlight = true
	s.state = StateSyncing
	sess := *s.session
	s.mu.Unlock()

	err := s.runCycle(ctx, sess)

	authExpired := errors.Is(err, common.ErrAuthExpired)
	if authExpired {
		if cerr := s.store.Clear(); cerr != nil {
			s.logger.Error(ctx, "failed to clear expired session", "error", cerr.Error())
		}
	}

	s.mu.Lock()
	s.syncInFlight = false
	s.lastErr = err
	if err == nil {
		s.lastSyncAt = time.Now()
	}
	switch {
	case authExpired:
		s.session = nil
		s.state = StateDisconnected
	case s.session == nil:
		// Logged out while the cycle was running.
		s.state = StateDisconnected
	default:
		s.state = StateIdle
	}
	s.mu.Unlock()

	if authExpired {
		s.notifyAuthChange()
	}
	return err
}

// runCycle performs the network part of one cycle: a sync call, and on an
// expired access token exactly one refresh followed by one retry.
func (s *Syncer) runCycle(ctx context.Context, sess session.Session) error {
	_, err := s.gateway.Sync(ctx, sess.AccessToken)
	if err == nil {
		return nil
	}

	if errors.Is(err, common.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", common.ErrAuthExpired, err)
	}
	if !errors.Is(err, common.ErrTokenExpired) {
		return err
	}

	accessToken, err := s.gateway.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			return fmt.Errorf("%w: refresh token rejected", common.ErrAuthExpired)
		}
		// A refresh that failed for transport reasons is not an auth loss.
		return err
	}

	if err := s.store.UpdateAccessToken(accessToken); err != nil {
		return err
	}
	s.mu.Lock()
	if s.session != nil {
		s.session.AccessToken = accessToken
	}
	s.mu.Unlock()

	_, err = s.gateway.Sync(ctx, accessToken)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", common.ErrAuthExpired, err)
	}
	return err
}

// StartPeriodicSync starts the automatic sync timer. Idempotent; a second
// call while the timer runs does nothing, so there is never more than one
// ticker. Ticks that land while a cycle is in flight are skipped.
func (s *Syncer) StartPeriodicSync() {
	s.mu.Lock()
	if s.periodicStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.periodicStop = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.periodicLoop(stop)
}

func (s *Syncer) periodicLoop(stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := s.ManualSync(context.Background())
			// A failed cycle never stops the timer.
			if err != nil && !errors.Is(err, common.ErrSyncInProgress) && !errors.Is(err, common.ErrNotConnected) {
				s.logger.Warn(context.Background(), "periodic sync failed", "error", err.Error())
			}
		}
	}
}

// StopPeriodicSync stops the automatic sync timer. Idempotent.
func (s *Syncer) StopPeriodicSync() {
	s.mu.Lock()
	stop := s.periodicStop
	s.periodicStop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

// Status returns a snapshot of the orchestrator state. Available in every
// state, including while a cycle runs.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:      s.state,
		AutoSyncOn: s.periodicStop != nil,
		LastSyncAt: s.lastSyncAt,
	}
	if s.syncInFlight {
		st.State = StateSyncing
	}
	if s.session != nil {
		st.Email = s.session.Email
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Dispose stops the periodic timer and waits for its goroutine to exit.
// Safe to call repeatedly.
func (s *Syncer) Dispose() {
	s.StopPeriodicSync()
	s.wg.Wait()
}

func deviceName() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
