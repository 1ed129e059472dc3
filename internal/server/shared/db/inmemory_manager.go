package db

import (
	"context"

	"github.com/akarpenko/notesync/internal/server/refreshtokens"
	"github.com/akarpenko/notesync/internal/server/users"
)

// InMemoryRepositoryManager backs tests. InTx offers no rollback; the
// map repositories apply each row operation immediately.
type InMemoryRepositoryManager struct {
	users         *users.InMemoryRepository
	refreshTokens *refreshtokens.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewInMemoryRepository(),
		refreshTokens: refreshtokens.NewInMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

// UsersInMemory exposes the concrete repository for test helpers.
func (m *InMemoryRepositoryManager) UsersInMemory() *users.InMemoryRepository {
	return m.users
}

// RefreshTokensInMemory exposes the concrete repository for test helpers.
func (m *InMemoryRepositoryManager) RefreshTokensInMemory() *refreshtokens.InMemoryRepository {
	return m.refreshTokens
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) InTx(ctx context.Context, fn func(m RepositoryManager) error) error {
	return fn(m)
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
