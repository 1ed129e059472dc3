package refreshtokens

import "time"

// RefreshToken is one stored refresh credential. Presence of the row is the
// revocation mechanism: a structurally valid token whose row is gone is dead.
// DeviceID is the internal device row id.
type RefreshToken struct {
	Token     string
	UserID    string
	DeviceID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
