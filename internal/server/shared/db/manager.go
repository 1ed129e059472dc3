// Package db wires concrete repository implementations into a single
// manager the services depend on. The Postgres manager is the production
// backend; the in-memory one backs tests.
package db

import (
	"context"

	"github.com/akarpenko/notesync/internal/server/refreshtokens"
	"github.com/akarpenko/notesync/internal/server/users"
)

// RepositoryManager hands out repositories and scopes them to transactions.
type RepositoryManager interface {
	// RunMigrations applies pending schema migrations.
	RunMigrations(ctx context.Context) error

	Users() users.Repository
	RefreshTokens() refreshtokens.Repository

	// InTx runs fn with a manager whose repositories share one transaction;
	// the transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(m RepositoryManager) error) error

	Close() error
}
