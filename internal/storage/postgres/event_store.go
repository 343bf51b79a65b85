package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	event_id, source, chain, token_address, token_symbol, wallet_address,
	direction, tx_hash, occurred_at, usd_notional, volume_jump,
	netflow_usd, volume_z, wallet_alpha, extra, created_at
`

const upsertEventQuery = `
	INSERT INTO events (
		event_id, source, chain, token_address, token_symbol, wallet_address,
		direction, tx_hash, occurred_at, usd_notional, volume_jump,
		netflow_usd, volume_z, wallet_alpha, extra, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (event_id) DO NOTHING
`

func eventArgs(e *domain.Event) ([]any, error) {
	var extra []byte
	if len(e.Features.Extra) > 0 {
		raw, err := json.Marshal(e.Features.Extra)
		if err != nil {
			return nil, fmt.Errorf("encode event extra: %w", err)
		}
		extra = raw
	}
	return []any{
		e.EventID, string(e.Source), e.Chain, e.TokenAddress, e.TokenSymbol,
		e.WalletAddress, string(e.Direction), e.TxHash, e.OccurredAt,
		e.Features.USDNotional, e.Features.VolumeJump,
		e.Features.SmartMoneyNetflow, e.Features.VolumeZScore,
		e.Features.WalletAlpha, extra, e.CreatedAt,
	}, nil
}

// Upsert inserts an event keyed by event_id; a duplicate is a no-op.
func (s *EventStore) Upsert(ctx context.Context, e *domain.Event) (bool, error) {
	if e == nil || e.EventID == "" {
		return false, storage.ErrInvalidInput
	}
	args, err := eventArgs(e)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, upsertEventQuery, args...)
	if err != nil {
		return false, fmt.Errorf("upsert event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByWallet retrieves the most recent events for a wallet.
func (s *EventStore) GetByWallet(ctx context.Context, address string, limit int) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE wallet_address = $1
		ORDER BY occurred_at DESC, event_id ASC
	`
	args := []any{address}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by wallet: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetRecentByToken retrieves token events with occurred_at >= since.
func (s *EventStore) GetRecentByToken(ctx context.Context, key domain.TokenKey, since int64) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE chain = $1 AND token_address = $2 AND occurred_at >= $3
		ORDER BY occurred_at ASC, event_id ASC
	`
	rows, err := s.pool.Query(ctx, query, key.Chain, key.Address, since)
	if err != nil {
		return nil, fmt.Errorf("get events by token: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// USDNotionalHistory returns the notionals of token events at or after since.
func (s *EventStore) USDNotionalHistory(ctx context.Context, key domain.TokenKey, since int64) ([]float64, error) {
	query := `
		SELECT usd_notional
		FROM events
		WHERE chain = $1 AND token_address = $2
		  AND occurred_at >= $3 AND usd_notional IS NOT NULL
		ORDER BY occurred_at ASC
	`
	rows, err := s.pool.Query(ctx, query, key.Chain, key.Address, since)
	if err != nil {
		return nil, fmt.Errorf("get notional history: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan notional: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TopWalletsByActivity returns wallet addresses ordered by event count DESC.
func (s *EventStore) TopWalletsByActivity(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT wallet_address
		FROM events
		WHERE wallet_address <> ''
		GROUP BY wallet_address
		ORDER BY COUNT(*) DESC, wallet_address ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get top wallets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan wallet address: %w", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e      domain.Event
		source string
		dir    string
		extra  []byte
	)
	err := row.Scan(
		&e.EventID, &source, &e.Chain, &e.TokenAddress, &e.TokenSymbol,
		&e.WalletAddress, &dir, &e.TxHash, &e.OccurredAt,
		&e.Features.USDNotional, &e.Features.VolumeJump,
		&e.Features.SmartMoneyNetflow, &e.Features.VolumeZScore,
		&e.Features.WalletAlpha, &extra, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Source = domain.Source(source)
	e.Direction = domain.Direction(dir)
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &e.Features.Extra); err != nil {
			return nil, fmt.Errorf("decode event extra: %w", err)
		}
	}
	return &e, nil
}
