// Package api defines the JSON request/response shapes shared by the
// NoteSync HTTP gateway and the client. Changing a field here changes the
// wire contract for both sides.
package api

import "time"

// RegisterRequest creates a new account and binds the calling device.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name,omitempty"`
}

// LoginRequest authenticates an existing account from a device. The device
// is upserted: a new device id creates a row, a known one refreshes its name.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name,omitempty"`
}

// User is the public view of an account. The password hash never appears
// on the wire.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries only a new access token; the refresh token is
// not rotated.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// LogoutRequest revokes one refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutResponse acknowledges logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body for non-2xx statuses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
