package users

import "time"

// User is a stored account. PasswordHash never leaves this package's
// consumers; the gateway strips it before anything goes on the wire.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Device is one registered device of a user. DeviceID is the client-chosen
// stable identifier; ID is the internal row id that tokens embed.
// (UserID, DeviceID) is unique.
type Device struct {
	ID         string
	UserID     string
	DeviceID   string
	DeviceName string
	LastSyncAt time.Time
}
