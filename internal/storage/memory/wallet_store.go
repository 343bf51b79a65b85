package memory

import (
	"context"
	"sync"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Wallet // keyed by address
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data: make(map[string]*domain.Wallet),
	}
}

// Upsert inserts or replaces a wallet keyed by address.
func (s *WalletStore) Upsert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	walletCopy := *w
	walletCopy.Labels = append([]string(nil), w.Labels...)
	s.data[w.Address] = &walletCopy
	return nil
}

// Get retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) Get(_ context.Context, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	walletCopy := *w
	walletCopy.Labels = append([]string(nil), w.Labels...)
	return &walletCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.WalletStore = (*WalletStore)(nil)
