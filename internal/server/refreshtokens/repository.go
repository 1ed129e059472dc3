// Package refreshtokens persists refresh-token rows. Old tokens of a device
// are not proactively deleted when new ones are issued: several sessions
// from the same device may be live at once (app restarts). Deletion happens
// on logout and in the expiry sweep.
package refreshtokens

import (
	"context"
	"time"
)

type Repository interface {
	// Create stores a new token row.
	Create(ctx context.Context, token *RefreshToken) error

	// Get returns common.ErrNotFound if the row does not exist.
	Get(ctx context.Context, token string) (*RefreshToken, error)

	// Delete removes the row. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes rows with ExpiresAt <= now and reports how many
	// were dropped. Housekeeping only; Get callers must still check expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
