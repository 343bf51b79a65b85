package postgres

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

const upsertWalletQuery = `
	INSERT INTO wallets (
		address, labels, alpha_score, win_rate_1h, win_rate_4h, win_rate_24h,
		status, notes, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (address) DO UPDATE SET
		labels = EXCLUDED.labels,
		alpha_score = EXCLUDED.alpha_score,
		win_rate_1h = EXCLUDED.win_rate_1h,
		win_rate_4h = EXCLUDED.win_rate_4h,
		win_rate_24h = EXCLUDED.win_rate_24h,
		status = EXCLUDED.status,
		notes = EXCLUDED.notes,
		updated_at = EXCLUDED.updated_at
`

// Upsert inserts or replaces a wallet keyed by address.
func (s *WalletStore) Upsert(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, upsertWalletQuery,
		w.Address, w.Labels, w.AlphaScore,
		w.WinRate1h, w.WinRate4h, w.WinRate24h,
		string(w.Status), w.Notes, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

// Get retrieves a wallet by address.
func (s *WalletStore) Get(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `
		SELECT address, labels, alpha_score, win_rate_1h, win_rate_4h,
		       win_rate_24h, status, notes, updated_at
		FROM wallets
		WHERE address = $1
	`
	var (
		w      domain.Wallet
		status string
	)
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&w.Address, &w.Labels, &w.AlphaScore,
		&w.WinRate1h, &w.WinRate4h, &w.WinRate24h,
		&status, &w.Notes, &w.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	w.Status = domain.WalletStatus(status)
	return &w, nil
}
