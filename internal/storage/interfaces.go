package storage

import (
	"context"

	"smartmoney-collector/internal/domain"
)

// EventStore provides access to normalized event storage.
type EventStore interface {
	// Upsert inserts an event keyed by event_id. A second occurrence of
	// the same event_id is a no-op; inserted reports whether a row was
	// actually written.
	Upsert(ctx context.Context, e *domain.Event) (inserted bool, err error)

	// GetByWallet retrieves the most recent events for a wallet, ordered
	// by occurred_at DESC, at most limit rows.
	GetByWallet(ctx context.Context, address string, limit int) ([]*domain.Event, error)

	// GetRecentByToken retrieves events for a token with occurred_at >= since,
	// ordered by occurred_at ASC.
	GetRecentByToken(ctx context.Context, key domain.TokenKey, since int64) ([]*domain.Event, error)

	// USDNotionalHistory returns the USD notionals of events for a token
	// observed at or after since. Used by the dynamic filter floor.
	USDNotionalHistory(ctx context.Context, key domain.TokenKey, since int64) ([]float64, error)

	// TopWalletsByActivity returns wallet addresses ordered by event count
	// DESC, at most limit entries. Used by alpha refresh.
	TopWalletsByActivity(ctx context.Context, limit int) ([]string, error)
}

// WalletStore provides access to wallet aggregate storage.
type WalletStore interface {
	// Upsert inserts or replaces a wallet keyed by address.
	Upsert(ctx context.Context, w *domain.Wallet) error

	// Get retrieves a wallet by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.Wallet, error)
}

// TokenStore provides access to token aggregate storage.
type TokenStore interface {
	// Upsert inserts or replaces a token keyed by (chain, address).
	Upsert(ctx context.Context, t *domain.Token) error

	// Get retrieves a token by its composite key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key domain.TokenKey) (*domain.Token, error)
}

// SignalStore provides access to signal storage. Signals are append-only.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// LatestByToken retrieves the most recent signal for a token.
	// Returns ErrNotFound if the token has never signalled. Used by the
	// cooldown check and the hold-direction rule.
	LatestByToken(ctx context.Context, key domain.TokenKey) (*domain.Signal, error)

	// GetByRun retrieves all signals for a run, ordered by score DESC.
	GetByRun(ctx context.Context, runID string) ([]*domain.Signal, error)

	// GetAll retrieves all signals, ordered by generated_at ASC.
	GetAll(ctx context.Context) ([]*domain.Signal, error)
}

// RunStore provides access to run history.
type RunStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// Latest retrieves the most recently started run. Returns ErrNotFound
	// if no runs have been recorded.
	Latest(ctx context.Context) (*domain.RunRecord, error)
}

// RunBatch is the working set a run commits atomically.
type RunBatch struct {
	Run     *domain.RunRecord
	Events  []*domain.Event
	Wallets []*domain.Wallet
	Tokens  []*domain.Token
	Signals []*domain.Signal
}

// RunCommitter persists a run's writes all-or-nothing. Only the
// orchestrator's commit phase calls this; per-token workers never write
// shared aggregates directly.
type RunCommitter interface {
	CommitRun(ctx context.Context, batch *RunBatch) error
}

// RunLock serializes pipeline runs. TryAcquire returns ErrRunInProgress
// when the lock is held; the returned release function must be called
// once the run finishes or fails.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}
