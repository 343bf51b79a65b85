package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, run_id, chain, token_address, token_symbol, dominant_wallet,
	score, direction, reason, candidate, snapshot, generated_at
`

const insertSignalQuery = `
	INSERT INTO signals (
		signal_id, run_id, chain, token_address, token_symbol, dominant_wallet,
		score, direction, reason, candidate, snapshot, generated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func signalArgs(sig *domain.Signal) ([]any, error) {
	snapshot, err := json.Marshal(sig.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode signal snapshot: %w", err)
	}
	return []any{
		sig.SignalID, sig.RunID, sig.Chain, sig.TokenAddress, sig.TokenSymbol,
		sig.DominantWallet, sig.Score, string(sig.Direction), sig.Reason,
		sig.Candidate, snapshot, sig.GeneratedAt,
	}, nil
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}
	args, err := signalArgs(sig)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertSignalQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// LatestByToken retrieves the most recent signal for a token.
func (s *SignalStore) LatestByToken(ctx context.Context, key domain.TokenKey) (*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE chain = $1 AND token_address = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`
	sig, err := scanSignal(s.pool.QueryRow(ctx, query, key.Chain, key.Address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest signal: %w", err)
	}
	return sig, nil
}

// GetByRun retrieves all signals for a run, ordered by score DESC.
func (s *SignalStore) GetByRun(ctx context.Context, runID string) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE run_id = $1
		ORDER BY score DESC, signal_id ASC
	`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get signals by run: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetAll retrieves all signals, ordered by generated_at ASC.
func (s *SignalStore) GetAll(ctx context.Context) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		ORDER BY generated_at ASC, signal_id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var out []*domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		sig      domain.Signal
		dir      string
		snapshot []byte
	)
	err := row.Scan(
		&sig.SignalID, &sig.RunID, &sig.Chain, &sig.TokenAddress,
		&sig.TokenSymbol, &sig.DominantWallet, &sig.Score, &dir,
		&sig.Reason, &sig.Candidate, &snapshot, &sig.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	sig.Direction = domain.Direction(dir)
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &sig.Snapshot); err != nil {
			return nil, fmt.Errorf("decode signal snapshot: %w", err)
		}
	}
	return &sig, nil
}
