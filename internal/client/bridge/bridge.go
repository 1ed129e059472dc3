// Package bridge is the control surface between the sync client and a UI
// process. Every operation returns an Envelope instead of a raw error, and
// auth state transitions are pushed to registered subscribers.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akarpenko/notesync/internal/client/config"
	"github.com/akarpenko/notesync/internal/client/syncer"
	"github.com/akarpenko/notesync/internal/common"
)

// Envelope is the uniform answer for every bridge operation. Exactly one of
// Data and Error is meaningful, selected by Success.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Subscriber receives outbound notifications. AuthStateChanged carries no
// payload; the UI re-reads Status when it fires.
type Subscriber interface {
	AuthStateChanged()
}

// StatusData is the Data payload of Status.
type StatusData struct {
	State      string `json:"state"`
	Email      string `json:"email,omitempty"`
	AutoSyncOn bool   `json:"auto_sync_on"`
	LastSyncAt string `json:"last_sync_at,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// ConfigData is the Data payload of Config.
type ConfigData struct {
	ServerURL    string `json:"server_url"`
	SyncInterval string `json:"sync_interval"`
}

type Bridge struct {
	syncer *syncer.Syncer
	config *config.Config

	mu          sync.Mutex
	subscribers []Subscriber
}

func New(s *syncer.Syncer, cfg *config.Config) *Bridge {
	b := &Bridge{syncer: s, config: cfg}
	s.OnAuthChange(b.notifyAuthStateChanged)
	return b
}

// Subscribe registers a notification receiver.
func (b *Bridge) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

func (b *Bridge) notifyAuthStateChanged() {
	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.AuthStateChanged()
	}
}

func (b *Bridge) Register(ctx context.Context, email, password string) Envelope {
	if err := b.syncer.Register(ctx, email, password); err != nil {
		return failure(err)
	}
	return success(b.statusData())
}

func (b *Bridge) Login(ctx context.Context, email, password string) Envelope {
	if err := b.syncer.Login(ctx, email, password); err != nil {
		return failure(err)
	}
	return success(b.statusData())
}

func (b *Bridge) Logout(ctx context.Context) Envelope {
	if err := b.syncer.Logout(ctx); err != nil {
		return failure(err)
	}
	return success(nil)
}

func (b *Bridge) Sync(ctx context.Context) Envelope {
	if err := b.syncer.ManualSync(ctx); err != nil {
		return failure(err)
	}
	return success(b.statusData())
}

func (b *Bridge) Status() Envelope {
	return success(b.statusData())
}

func (b *Bridge) Config() Envelope {
	return success(ConfigData{
		ServerURL:    b.config.ServerURL,
		SyncInterval: b.config.SyncInterval.String(),
	})
}

func (b *Bridge) StartAutoSync() Envelope {
	b.syncer.StartPeriodicSync()
	return success(b.statusData())
}

func (b *Bridge) StopAutoSync() Envelope {
	b.syncer.StopPeriodicSync()
	return success(b.statusData())
}

func (b *Bridge) statusData() StatusData {
	st := b.syncer.Status()

	data := StatusData{
		State:      st.State.String(),
		Email:      st.Email,
		AutoSyncOn: st.AutoSyncOn,
		LastError:  st.LastError,
	}
	if !st.LastSyncAt.IsZero() {
		data.LastSyncAt = st.LastSyncAt.Format(time.RFC3339)
	}
	return data
}

func success(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func failure(err error) Envelope {
	return Envelope{Success: false, Error: userMessage(err)}
}

// userMessage folds sentinel errors into short, stable strings the UI can
// show or match on. Raw error text never crosses the bridge.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "validation failed: check email, password length, and device id"
	case errors.Is(err, common.ErrConflict):
		return "email is already registered"
	case errors.Is(err, common.ErrUnauthorized):
		return "invalid email or password"
	case errors.Is(err, common.ErrNotConnected):
		return "not logged in"
	case errors.Is(err, common.ErrSyncInProgress):
		return "sync already in progress"
	case errors.Is(err, common.ErrAuthExpired):
		return "session expired, please log in again"
	case errors.Is(err, common.ErrNetwork):
		return "server unreachable"
	default:
		return "operation failed"
	}
}
