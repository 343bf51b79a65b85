package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

func pgTestSignal(id, runID string, score float64, generatedAt int64) *domain.Signal {
	return &domain.Signal{
		SignalID:       id,
		RunID:          runID,
		Chain:          "ethereum",
		TokenAddress:   "0xtoken",
		TokenSymbol:    "TKN",
		DominantWallet: "0xw",
		Score:          score,
		Direction:      domain.DirectionBuy,
		Reason:         "usd_notional,labels",
		Candidate:      score >= 0.65,
		Snapshot: domain.FeatureSnapshot{
			USDScore:         1,
			LabelScore:       0.9,
			WeightUSD:        0.25,
			WeightLabel:      0.25,
			TotalUSDNotional: 250000,
		},
		GeneratedAt: generatedAt,
	}
}

func TestSignalStore_InsertAndQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pgTestSignal("sig-1", "run-1", 0.7, 1000)))

	err := store.Insert(ctx, pgTestSignal("sig-1", "run-1", 0.7, 1000))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.Insert(ctx, pgTestSignal("sig-2", "run-2", 0.9, 2000)))
	require.NoError(t, store.Insert(ctx, pgTestSignal("sig-3", "run-2", 0.4, 1500)))

	key := domain.TokenKey{Chain: "ethereum", Address: "0xtoken"}
	latest, err := store.LatestByToken(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "sig-2", latest.SignalID, "expected most recently generated signal")
	require.Equal(t, 0.9, latest.Snapshot.LabelScore)

	_, err = store.LatestByToken(ctx, domain.TokenKey{Chain: "ethereum", Address: "0xmissing"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	byRun, err := store.GetByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	require.Equal(t, "sig-2", byRun[0].SignalID, "expected score DESC")

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "sig-1", all[0].SignalID, "expected generated_at ASC")
}

func TestWalletStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWalletStore(pool)
	ctx := context.Background()

	w := &domain.Wallet{
		Address:    "0xw",
		Labels:     []string{"fund"},
		AlphaScore: 0.5,
		Status:     domain.WalletActive,
		UpdatedAt:  1000,
	}
	require.NoError(t, store.Upsert(ctx, w))

	w.Labels = append(w.Labels, "smart_money")
	w.AlphaScore = 0.8
	w.UpdatedAt = 2000
	require.NoError(t, store.Upsert(ctx, w))

	got, err := store.Get(ctx, "0xw")
	require.NoError(t, err)
	require.Equal(t, []string{"fund", "smart_money"}, got.Labels)
	require.Equal(t, 0.8, got.AlphaScore)
	require.Equal(t, int64(2000), got.UpdatedAt)

	_, err = store.Get(ctx, "0xmissing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tok := &domain.Token{
		Chain:          "ethereum",
		Address:        "0xtoken",
		Symbol:         "TKN",
		LiquidityScore: 0.5,
		Tradable:       true,
		ExchangeSymbol: "TKNUSDT",
		RiskFlags:      []string{"new_listing"},
		RefreshedRun:   "run-1",
		UpdatedAt:      1000,
	}
	require.NoError(t, store.Upsert(ctx, tok))

	tok.LiquidityScore = 0.7
	tok.RefreshedRun = "run-2"
	tok.UpdatedAt = 2000
	require.NoError(t, store.Upsert(ctx, tok))

	got, err := store.Get(ctx, domain.TokenKey{Chain: "ethereum", Address: "0xtoken"})
	require.NoError(t, err)
	require.Equal(t, 0.7, got.LiquidityScore)
	require.Equal(t, "run-2", got.RefreshedRun)
	require.Equal(t, []string{"new_listing"}, got.RiskFlags)

	_, err = store.Get(ctx, domain.TokenKey{Chain: "solana", Address: "0xtoken"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
