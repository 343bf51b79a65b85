package replay

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/score"
	"smartmoney-collector/internal/storage"
)

// Divergence is one signal whose stored score the formula no longer
// reproduces from its snapshot.
type Divergence struct {
	SignalID   string
	RunID      string
	Chain      string
	Token      string
	Stored     float64
	Recomputed float64
}

// Report summarizes a verification pass.
type Report struct {
	Checked     int
	Divergences []Divergence
}

// Match reports whether every stored signal replayed exactly.
func (r *Report) Match() bool {
	return len(r.Divergences) == 0
}

// Verifier replays stored signal snapshots through the scoring formula.
// A snapshot carries its own weights and penalties, so replay is
// independent of the live configuration.
type Verifier struct {
	signals storage.SignalStore
}

// NewVerifier creates a verifier over the given signal store.
func NewVerifier(signals storage.SignalStore) *Verifier {
	return &Verifier{signals: signals}
}

// VerifyAll recomputes every stored signal's score from its snapshot.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	signals, err := v.signals.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	report := &Report{Checked: len(signals)}
	for _, s := range signals {
		recomputed := score.Compute(s.Snapshot)
		if recomputed != s.Score {
			report.Divergences = append(report.Divergences, Divergence{
				SignalID:   s.SignalID,
				RunID:      s.RunID,
				Chain:      s.Chain,
				Token:      s.TokenAddress,
				Stored:     s.Score,
				Recomputed: recomputed,
			})
		}
	}
	return report, nil
}

// VerifyRun recomputes the signals of a single run.
func (v *Verifier) VerifyRun(ctx context.Context, runID string) (*Report, error) {
	signals, err := v.signals.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run signals: %w", err)
	}

	report := &Report{Checked: len(signals)}
	for _, s := range signals {
		recomputed := score.Compute(s.Snapshot)
		if recomputed != s.Score {
			report.Divergences = append(report.Divergences, Divergence{
				SignalID:   s.SignalID,
				RunID:      s.RunID,
				Chain:      s.Chain,
				Token:      s.TokenAddress,
				Stored:     s.Score,
				Recomputed: recomputed,
			})
		}
	}
	return report, nil
}
