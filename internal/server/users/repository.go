package users

import (
	"context"
	"time"
)

// Repository persists users and their devices.
type Repository interface {
	// Create inserts a new user. Returns common.ErrConflict if the email
	// is already taken.
	Create(ctx context.Context, user *User) (*User, error)

	// GetByEmail returns common.ErrNotFound if no such account exists.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns common.ErrNotFound if no such account exists.
	GetByID(ctx context.Context, id string) (*User, error)

	// UpsertDevice inserts the device if (UserID, DeviceID) is new, else
	// refreshes its name and LastSyncAt. The stored row (with internal id)
	// is returned.
	UpsertDevice(ctx context.Context, device *Device) (*Device, error)

	// GetDevice looks a device up by internal row id, verifying it still
	// belongs to userID. Returns common.ErrNotFound otherwise.
	GetDevice(ctx context.Context, userID, id string) (*Device, error)

	// TouchDevice sets LastSyncAt on the device owned by userID.
	// Returns common.ErrNotFound if the row is gone or owned by someone else.
	TouchDevice(ctx context.Context, userID, id string, at time.Time) error

	// ListDevices returns all devices of a user.
	ListDevices(ctx context.Context, userID string) ([]*Device, error)
}
