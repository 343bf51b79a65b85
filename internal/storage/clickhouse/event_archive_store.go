package clickhouse

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/domain"
)

// EventArchiveStore keeps the append-only long-horizon copy of every
// normalized event. The operational store retains what alpha estimation
// needs day to day; the archive feeds offline history analytics without
// bloating PostgreSQL.
type EventArchiveStore struct {
	conn *Conn
}

// NewEventArchiveStore creates a new EventArchiveStore.
func NewEventArchiveStore(conn *Conn) *EventArchiveStore {
	return &EventArchiveStore{conn: conn}
}

// ArchiveBatch appends a run's events. Re-archiving the same event_id is
// harmless: the ReplacingMergeTree collapses duplicates at merge time.
func (s *EventArchiveStore) ArchiveBatch(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO event_archive (
			event_id, source, chain, token_address, token_symbol,
			wallet_address, direction, tx_hash, occurred_at,
			usd_notional, volume_jump, netflow_usd, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare archive batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.EventID, string(e.Source), e.Chain, e.TokenAddress, e.TokenSymbol,
			e.WalletAddress, string(e.Direction), e.TxHash, e.OccurredAt,
			e.Features.USDNotional, e.Features.VolumeJump,
			e.Features.SmartMoneyNetflow, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append event %s: %w", e.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send archive batch: %w", err)
	}
	return nil
}

// CountByToken returns the number of archived events for a token at or
// after since. FINAL collapses replaced duplicates.
func (s *EventArchiveStore) CountByToken(ctx context.Context, key domain.TokenKey, since int64) (uint64, error) {
	query := `
		SELECT count()
		FROM event_archive FINAL
		WHERE chain = $1 AND token_address = $2 AND occurred_at >= $3
	`
	var count uint64
	if err := s.conn.QueryRow(ctx, query, key.Chain, key.Address, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archived events: %w", err)
	}
	return count, nil
}
