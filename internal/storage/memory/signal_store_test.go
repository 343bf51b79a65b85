package memory

import (
	"context"
	"errors"
	"testing"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

func testSignal(id, runID string, key domain.TokenKey, score float64, generatedAt int64) *domain.Signal {
	return &domain.Signal{
		SignalID:     id,
		RunID:        runID,
		Chain:        key.Chain,
		TokenAddress: key.Address,
		Score:        score,
		Direction:    domain.DirectionBuy,
		GeneratedAt:  generatedAt,
	}
}

func TestSignalStore_InsertDuplicate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()
	key := domain.TokenKey{Chain: "ethereum", Address: "0xtoken"}

	if err := store.Insert(ctx, testSignal("sig-1", "run-1", key, 0.7, 1000)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := store.Insert(ctx, testSignal("sig-1", "run-2", key, 0.8, 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_LatestByToken(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()
	key := domain.TokenKey{Chain: "ethereum", Address: "0xtoken"}
	other := domain.TokenKey{Chain: "ethereum", Address: "0xother"}

	_ = store.Insert(ctx, testSignal("a", "run-1", key, 0.7, 1000))
	_ = store.Insert(ctx, testSignal("b", "run-2", key, 0.8, 3000))
	_ = store.Insert(ctx, testSignal("c", "run-3", other, 0.9, 5000))

	latest, err := store.LatestByToken(ctx, key)
	if err != nil {
		t.Fatalf("LatestByToken failed: %v", err)
	}
	if latest.SignalID != "b" {
		t.Errorf("expected latest signal b, got %s", latest.SignalID)
	}

	_, err = store.LatestByToken(ctx, domain.TokenKey{Chain: "solana", Address: "none"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unseen token, got %v", err)
	}
}

func TestSignalStore_GetByRunOrder(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()
	key := domain.TokenKey{Chain: "ethereum", Address: "0xtoken"}
	other := domain.TokenKey{Chain: "ethereum", Address: "0xother"}

	_ = store.Insert(ctx, testSignal("a", "run-1", key, 0.5, 1000))
	_ = store.Insert(ctx, testSignal("b", "run-1", other, 0.9, 1000))
	_ = store.Insert(ctx, testSignal("c", "run-2", key, 0.7, 2000))

	signals, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals for run-1, got %d", len(signals))
	}
	if signals[0].Score < signals[1].Score {
		t.Errorf("expected score DESC order, got %f, %f", signals[0].Score, signals[1].Score)
	}
}

func TestRunLock_Exclusive(t *testing.T) {
	lock := NewRunLock()
	ctx := context.Background()

	release, err := lock.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := lock.TryAcquire(ctx); !errors.Is(err, storage.ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress while held, got %v", err)
	}

	release()
	release() // second call is a no-op

	release2, err := lock.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	release2()
}
