package memory

import (
	"context"
	"sync"

	"smartmoney-collector/internal/storage"
)

// RunLock is an in-process implementation of storage.RunLock.
type RunLock struct {
	mu   sync.Mutex
	held bool
}

// NewRunLock creates a new in-process run lock.
func NewRunLock() *RunLock {
	return &RunLock{}
}

// TryAcquire takes the lock or returns ErrRunInProgress.
func (l *RunLock) TryAcquire(_ context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil, storage.ErrRunInProgress
	}
	l.held = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}
	return release, nil
}

// Verify interface compliance at compile time.
var _ storage.RunLock = (*RunLock)(nil)
