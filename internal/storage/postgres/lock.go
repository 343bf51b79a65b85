package postgres

import (
	"context"
	"fmt"
	"sync"

	"smartmoney-collector/internal/storage"
)

// runLockKey identifies the collector's advisory lock. One key for the
// whole deployment: runs are serialized globally, not per token.
const runLockKey = 0x534d4321 // "SMC!"

// RunLock serializes runs across processes via a session-scoped
// advisory lock. The lock lives on a dedicated pooled connection that
// is held until release.
type RunLock struct {
	pool *Pool
}

// NewRunLock creates a run lock over the given pool.
func NewRunLock(pool *Pool) *RunLock {
	return &RunLock{pool: pool}
}

// Compile-time interface check.
var _ storage.RunLock = (*RunLock)(nil)

// TryAcquire takes the advisory lock or returns ErrRunInProgress.
func (l *RunLock) TryAcquire(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, storage.ErrRunInProgress
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Unlock on the same session; releasing the connection
			// would drop the session lock anyway, this keeps it tidy.
			_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", runLockKey)
			conn.Release()
		})
	}
	return release, nil
}
