package memory

import (
	"context"
	"sync"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// Latest retrieves the most recently started run.
func (s *RunStore) Latest(_ context.Context) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RunRecord
	for _, r := range s.data {
		if latest == nil || r.StartedAt > latest.StartedAt {
			latest = r
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}
	runCopy := *latest
	return &runCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.RunStore = (*RunStore)(nil)
