package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/akarpenko/notesync/internal/common"
)

// InMemoryRepository is a map-backed Repository used by tests and the
// in-memory repository manager.
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*RefreshToken
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tokens: make(map[string]*RefreshToken)}
}

func (r *InMemoryRepository) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *token
	stored.CreatedAt = time.Now().UTC()
	r.tokens[stored.Token] = &stored
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	result := *t
	return &result, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for k, t := range r.tokens {
		if !t.ExpiresAt.After(now) {
			delete(r.tokens, k)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports the number of stored rows. Test helper.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
