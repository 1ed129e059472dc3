package users

import (
	"context"
	"sync"
	"time"

	"github.com/akarpenko/notesync/internal/common"
)

// InMemoryRepository is a map-backed Repository used by tests and the
// in-memory repository manager.
type InMemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]*User   // keyed by user id
	devices map[string]*Device // keyed by internal device id
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[string]*User),
		devices: make(map[string]*Device),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, common.ErrConflict
		}
	}

	stored := *user
	stored.CreatedAt = time.Now().UTC()
	r.users[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	result := *u
	return &result, nil
}

func (r *InMemoryRepository) UpsertDevice(_ context.Context, device *Device) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.UserID == device.UserID && d.DeviceID == device.DeviceID {
			d.DeviceName = device.DeviceName
			d.LastSyncAt = time.Now().UTC()
			result := *d
			return &result, nil
		}
	}

	stored := *device
	r.devices[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (r *InMemoryRepository) GetDevice(_ context.Context, userID, id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrNotFound
	}
	result := *d
	return &result, nil
}

func (r *InMemoryRepository) TouchDevice(_ context.Context, userID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok || d.UserID != userID {
		return common.ErrNotFound
	}
	d.LastSyncAt = at
	return nil
}

func (r *InMemoryRepository) ListDevices(_ context.Context, userID string) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []*Device
	for _, d := range r.devices {
		if d.UserID == userID {
			result := *d
			devices = append(devices, &result)
		}
	}
	return devices, nil
}

// DeleteDevice removes a device row. Tests use it to simulate a device
// being unregistered while tokens referencing it are still in the wild.
func (r *InMemoryRepository) DeleteDevice(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
}
