package postgres

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/storage"
)

// Committer persists a run batch in a single transaction. Any failure
// rolls back every write of the run.
type Committer struct {
	pool *Pool
}

// NewCommitter creates a committer over the given pool.
func NewCommitter(pool *Pool) *Committer {
	return &Committer{pool: pool}
}

// Compile-time interface check.
var _ storage.RunCommitter = (*Committer)(nil)

// CommitRun writes events (idempotent), wallet and token aggregates,
// signals and the run record, all-or-nothing.
func (c *Committer) CommitRun(ctx context.Context, batch *storage.RunBatch) error {
	if batch == nil || batch.Run == nil || batch.Run.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range batch.Events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		args, err := eventArgs(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertEventQuery, args...); err != nil {
			return fmt.Errorf("commit event %s: %w", e.EventID, err)
		}
	}

	for _, w := range batch.Wallets {
		if w == nil || w.Address == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, upsertWalletQuery,
			w.Address, w.Labels, w.AlphaScore,
			w.WinRate1h, w.WinRate4h, w.WinRate24h,
			string(w.Status), w.Notes, w.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("commit wallet %s: %w", w.Address, err)
		}
	}

	for _, t := range batch.Tokens {
		if t == nil || t.Chain == "" || t.Address == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, upsertTokenQuery,
			t.Chain, t.Address, t.Symbol, t.LiquidityScore, t.Tradable,
			t.ExchangeSymbol, t.RiskFlags, t.VolumeJump, t.RefreshedRun, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("commit token %s/%s: %w", t.Chain, t.Address, err)
		}
	}

	for _, sig := range batch.Signals {
		if sig == nil || sig.SignalID == "" {
			return storage.ErrInvalidInput
		}
		args, err := signalArgs(sig)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertSignalQuery, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("commit signal %s: %w", sig.SignalID, err)
		}
	}

	if _, err := tx.Exec(ctx, insertRunQuery, runArgs(batch.Run)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("commit run record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
