package postgres

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const upsertTokenQuery = `
	INSERT INTO tokens (
		chain, address, symbol, liquidity_score, tradable, exchange_symbol,
		risk_flags, volume_jump, refreshed_run, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (chain, address) DO UPDATE SET
		symbol = EXCLUDED.symbol,
		liquidity_score = EXCLUDED.liquidity_score,
		tradable = EXCLUDED.tradable,
		exchange_symbol = EXCLUDED.exchange_symbol,
		risk_flags = EXCLUDED.risk_flags,
		volume_jump = EXCLUDED.volume_jump,
		refreshed_run = EXCLUDED.refreshed_run,
		updated_at = EXCLUDED.updated_at
`

// Upsert inserts or replaces a token keyed by (chain, address).
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Chain == "" || t.Address == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, upsertTokenQuery,
		t.Chain, t.Address, t.Symbol, t.LiquidityScore, t.Tradable,
		t.ExchangeSymbol, t.RiskFlags, t.VolumeJump, t.RefreshedRun, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// Get retrieves a token by its composite key.
func (s *TokenStore) Get(ctx context.Context, key domain.TokenKey) (*domain.Token, error) {
	query := `
		SELECT chain, address, symbol, liquidity_score, tradable,
		       exchange_symbol, risk_flags, volume_jump, refreshed_run, updated_at
		FROM tokens
		WHERE chain = $1 AND address = $2
	`
	var t domain.Token
	err := s.pool.QueryRow(ctx, query, key.Chain, key.Address).Scan(
		&t.Chain, &t.Address, &t.Symbol, &t.LiquidityScore, &t.Tradable,
		&t.ExchangeSymbol, &t.RiskFlags, &t.VolumeJump, &t.RefreshedRun, &t.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}
