package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

func fptr(v float64) *float64 { return &v }

func pgTestEvent(id, wallet string, occurredAt int64, usd float64) *domain.Event {
	return &domain.Event{
		EventID:       id,
		Source:        domain.SourceLargeTrade,
		Chain:         "ethereum",
		TokenAddress:  "0xtoken",
		TokenSymbol:   "TKN",
		WalletAddress: wallet,
		Direction:     domain.DirectionBuy,
		TxHash:        "0xtx-" + id,
		OccurredAt:    occurredAt,
		Features: domain.Features{
			USDNotional: fptr(usd),
			Extra:       map[string]float64{"slippage_bps": 12},
		},
		CreatedAt: occurredAt + 1,
	}
}

func TestEventStore_UpsertAndQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool)
	ctx := context.Background()

	inserted, err := store.Upsert(ctx, pgTestEvent("ev-1", "0xw", 1000, 150000))
	require.NoError(t, err)
	require.True(t, inserted, "first upsert should insert")

	inserted, err = store.Upsert(ctx, pgTestEvent("ev-1", "0xw", 1000, 150000))
	require.NoError(t, err)
	require.False(t, inserted, "duplicate event_id should be a no-op")

	_, err = store.Upsert(ctx, pgTestEvent("ev-2", "0xw", 3000, 250000))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, pgTestEvent("ev-3", "0xother", 2000, 90000))
	require.NoError(t, err)

	events, err := store.GetByWallet(ctx, "0xw", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(3000), events[0].OccurredAt, "expected occurred_at DESC")
	require.NotNil(t, events[0].Features.USDNotional)
	require.Equal(t, 250000.0, *events[0].Features.USDNotional)
	require.Equal(t, 12.0, events[0].Features.Extra["slippage_bps"], "extra features should survive the round trip")

	key := domain.TokenKey{Chain: "ethereum", Address: "0xtoken"}
	recent, err := store.GetRecentByToken(ctx, key, 2000)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, int64(2000), recent[0].OccurredAt, "expected occurred_at ASC")

	history, err := store.USDNotionalHistory(ctx, key, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{150000, 90000, 250000}, history)

	top, err := store.TopWalletsByActivity(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"0xw"}, top)
}

func TestCommitter_AllOrNothing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	committer := NewCommitter(pool)
	signals := NewSignalStore(pool)
	runs := NewRunStore(pool)
	events := NewEventStore(pool)

	sig := &domain.Signal{
		SignalID:     "sig-1",
		RunID:        "run-1",
		Chain:        "ethereum",
		TokenAddress: "0xtoken",
		Score:        0.8,
		Direction:    domain.DirectionBuy,
		Candidate:    true,
		Snapshot:     domain.FeatureSnapshot{USDScore: 1, WeightUSD: 0.25},
		GeneratedAt:  1000,
	}
	batch := &storage.RunBatch{
		Run:     &domain.RunRecord{RunID: "run-1", StartedAt: 900, FinishedAt: 1100, Phase: domain.PhaseDone},
		Events:  []*domain.Event{pgTestEvent("ev-1", "0xw", 1000, 150000)},
		Signals: []*domain.Signal{sig},
	}
	require.NoError(t, committer.CommitRun(ctx, batch))

	stored, err := signals.LatestByToken(ctx, domain.TokenKey{Chain: "ethereum", Address: "0xtoken"})
	require.NoError(t, err)
	require.Equal(t, 0.25, stored.Snapshot.WeightUSD, "snapshot should survive the round trip")

	run, err := runs.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDone, run.Phase)

	// Re-committing the same batch must fail on the duplicate run_id and
	// leave the store unchanged.
	batch.Events = append(batch.Events, pgTestEvent("ev-2", "0xw", 2000, 90000))
	err = committer.CommitRun(ctx, batch)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	after, err := events.GetByWallet(ctx, "0xw", 10)
	require.NoError(t, err)
	require.Len(t, after, 1, "rolled-back commit must not leave partial writes")
}

func TestRunLock_Advisory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	lock := NewRunLock(pool)

	release, err := lock.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx)
	require.ErrorIs(t, err, storage.ErrRunInProgress)

	release()
	release() // idempotent

	release2, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	release2()
}
