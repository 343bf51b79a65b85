package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
	}
}

// Upsert inserts an event keyed by event_id; duplicates are a no-op.
func (s *EventStore) Upsert(_ context.Context, e *domain.Event) (bool, error) {
	if e == nil || e.EventID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return false, nil
	}

	// Store a copy to prevent external mutation
	eventCopy := *e
	eventCopy.Features = e.CloneFeatures()
	s.data[e.EventID] = &eventCopy
	return true, nil
}

// GetByWallet retrieves the most recent events for a wallet, ordered by
// occurred_at DESC, at most limit rows.
func (s *EventStore) GetByWallet(_ context.Context, address string, limit int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.WalletAddress == address {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt > result[j].OccurredAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetRecentByToken retrieves events for a token with occurred_at >= since,
// ordered by occurred_at ASC.
func (s *EventStore) GetRecentByToken(_ context.Context, key domain.TokenKey, since int64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.TokenKey() == key && e.OccurredAt >= since {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt < result[j].OccurredAt
	})

	return result, nil
}

// USDNotionalHistory returns USD notionals for a token observed at or after since.
func (s *EventStore) USDNotionalHistory(_ context.Context, key domain.TokenKey, since int64) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []float64
	for _, e := range s.data {
		if e.TokenKey() == key && e.OccurredAt >= since && e.Features.USDNotional != nil {
			result = append(result, *e.Features.USDNotional)
		}
	}
	return result, nil
}

// TopWalletsByActivity returns wallet addresses ordered by event count DESC.
func (s *EventStore) TopWalletsByActivity(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.data {
		if e.WalletAddress != "" {
			counts[e.WalletAddress]++
		}
	}

	addresses := make([]string, 0, len(counts))
	for addr := range counts {
		addresses = append(addresses, addr)
	}
	sort.Slice(addresses, func(i, j int) bool {
		if counts[addresses[i]] != counts[addresses[j]] {
			return counts[addresses[i]] > counts[addresses[j]]
		}
		return addresses[i] < addresses[j] // deterministic tiebreak
	})

	if limit > 0 && len(addresses) > limit {
		addresses = addresses[:limit]
	}
	return addresses, nil
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
