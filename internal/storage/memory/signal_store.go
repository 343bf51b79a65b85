package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	signalCopy := *sig
	s.data[sig.SignalID] = &signalCopy
	return nil
}

// LatestByToken retrieves the most recent signal for a token.
func (s *SignalStore) LatestByToken(_ context.Context, key domain.TokenKey) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Signal
	for _, sig := range s.data {
		if sig.TokenKey() != key {
			continue
		}
		if latest == nil || sig.GeneratedAt > latest.GeneratedAt {
			latest = sig
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}
	signalCopy := *latest
	return &signalCopy, nil
}

// GetByRun retrieves all signals for a run, ordered by score DESC.
func (s *SignalStore) GetByRun(_ context.Context, runID string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.RunID == runID {
			signalCopy := *sig
			result = append(result, &signalCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	return result, nil
}

// GetAll retrieves all signals, ordered by generated_at ASC.
func (s *SignalStore) GetAll(_ context.Context) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Signal, 0, len(s.data))
	for _, sig := range s.data {
		signalCopy := *sig
		result = append(result, &signalCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].GeneratedAt < result[j].GeneratedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SignalStore = (*SignalStore)(nil)
