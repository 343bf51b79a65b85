package memory

import (
	"context"
	"sync"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[domain.TokenKey]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[domain.TokenKey]*domain.Token),
	}
}

// Upsert inserts or replaces a token keyed by (chain, address).
func (s *TokenStore) Upsert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Chain == "" || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCopy := *t
	tokenCopy.RiskFlags = append([]string(nil), t.RiskFlags...)
	s.data[t.Key()] = &tokenCopy
	return nil
}

// Get retrieves a token by its composite key. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, key domain.TokenKey) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	tokenCopy.RiskFlags = append([]string(nil), t.RiskFlags...)
	return &tokenCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
