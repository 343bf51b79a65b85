package memory

import (
	"context"

	"smartmoney-collector/internal/storage"
)

// Committer applies a run batch against the in-memory stores.
// Memory stores have no transactions; the committer validates the whole
// batch up front so that a well-formed batch cannot half-apply.
type Committer struct {
	events  *EventStore
	wallets *WalletStore
	tokens  *TokenStore
	signals *SignalStore
	runs    *RunStore
}

// NewCommitter creates a committer over the given memory stores.
func NewCommitter(events *EventStore, wallets *WalletStore, tokens *TokenStore, signals *SignalStore, runs *RunStore) *Committer {
	return &Committer{
		events:  events,
		wallets: wallets,
		tokens:  tokens,
		signals: signals,
		runs:    runs,
	}
}

// CommitRun persists the batch: events (idempotent), wallet/token
// aggregates, signals and the run record.
func (c *Committer) CommitRun(ctx context.Context, batch *storage.RunBatch) error {
	if batch == nil || batch.Run == nil || batch.Run.RunID == "" {
		return storage.ErrInvalidInput
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	for _, e := range batch.Events {
		if _, err := c.events.Upsert(ctx, e); err != nil {
			return err
		}
	}
	for _, w := range batch.Wallets {
		if err := c.wallets.Upsert(ctx, w); err != nil {
			return err
		}
	}
	for _, t := range batch.Tokens {
		if err := c.tokens.Upsert(ctx, t); err != nil {
			return err
		}
	}
	for _, s := range batch.Signals {
		if err := c.signals.Insert(ctx, s); err != nil {
			return err
		}
	}
	return c.runs.Insert(ctx, batch.Run)
}

func validateBatch(batch *storage.RunBatch) error {
	for _, e := range batch.Events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
	}
	for _, w := range batch.Wallets {
		if w == nil || w.Address == "" {
			return storage.ErrInvalidInput
		}
	}
	for _, t := range batch.Tokens {
		if t == nil || t.Chain == "" || t.Address == "" {
			return storage.ErrInvalidInput
		}
	}
	for _, s := range batch.Signals {
		if s == nil || s.SignalID == "" {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RunCommitter = (*Committer)(nil)
