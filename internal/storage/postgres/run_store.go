package postgres

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const insertRunQuery = `
	INSERT INTO runs (
		run_id, started_at, finished_at, phase, failed_phase,
		fetched, normalized, skipped, enriched, admitted, rejected,
		signals, buy_signals, sell_signals, recovered_error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

func runArgs(r *domain.RunRecord) []any {
	return []any{
		r.RunID, r.StartedAt, r.FinishedAt, string(r.Phase), string(r.FailedPhase),
		r.Fetched, r.Normalized, r.Skipped, r.Enriched, r.Admitted, r.Rejected,
		r.Signals, r.BuySignals, r.SellSignals, r.RecoveredError,
	}
}

// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	if _, err := s.pool.Exec(ctx, insertRunQuery, runArgs(r)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Latest retrieves the most recently started run.
func (s *RunStore) Latest(ctx context.Context) (*domain.RunRecord, error) {
	query := `
		SELECT run_id, started_at, finished_at, phase, failed_phase,
		       fetched, normalized, skipped, enriched, admitted, rejected,
		       signals, buy_signals, sell_signals, recovered_error
		FROM runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1
	`
	var (
		r           domain.RunRecord
		phase       string
		failedPhase string
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&r.RunID, &r.StartedAt, &r.FinishedAt, &phase, &failedPhase,
		&r.Fetched, &r.Normalized, &r.Skipped, &r.Enriched, &r.Admitted,
		&r.Rejected, &r.Signals, &r.BuySignals, &r.SellSignals, &r.RecoveredError,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	r.Phase = domain.RunPhase(phase)
	r.FailedPhase = domain.RunPhase(failedPhase)
	return &r, nil
}
