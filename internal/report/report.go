package report

import (
	"sort"
	"strings"

	"smartmoney-collector/internal/domain"
)

// Candidate is one top-N entry in the run summary.
type Candidate struct {
	Chain          string  `json:"chain"`
	TokenAddress   string  `json:"token_address"`
	TokenSymbol    string  `json:"token_symbol"`
	DominantWallet string  `json:"dominant_wallet,omitempty"`
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
}

// Summary is the reportable outcome of one run. Notification layers
// consume this structure; the core never formats or delivers messages.
type Summary struct {
	RunID      string `json:"run_id"`
	StartedAt  int64  `json:"started_at_ms"`
	FinishedAt int64  `json:"finished_at_ms"`

	Fetched    int            `json:"fetched"`
	Normalized int            `json:"normalized"`
	Skipped    int            `json:"skipped"`
	Enriched   int            `json:"enriched"`
	Admitted   int            `json:"admitted"`
	Rejected   int            `json:"rejected"`
	Rejections map[string]int `json:"rejections,omitempty"`

	Signals     int `json:"signals"`
	BuySignals  int `json:"buy_signals"`
	SellSignals int `json:"sell_signals"`
	Candidates  int `json:"candidates"`

	TopBuys  []Candidate `json:"top_buys,omitempty"`
	TopSells []Candidate `json:"top_sells,omitempty"`

	RecoveredErrors []string `json:"recovered_errors,omitempty"`
}

// Build assembles a summary from a committed run. topN bounds each of
// the buy and sell candidate lists.
func Build(run *domain.RunRecord, signals []*domain.Signal, rejections map[string]int, topN int) *Summary {
	s := &Summary{
		RunID:       run.RunID,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Fetched:     run.Fetched,
		Normalized:  run.Normalized,
		Skipped:     run.Skipped,
		Enriched:    run.Enriched,
		Admitted:    run.Admitted,
		Rejected:    run.Rejected,
		Rejections:  rejections,
		Signals:     run.Signals,
		BuySignals:  run.BuySignals,
		SellSignals: run.SellSignals,
	}
	if run.RecoveredError != "" {
		s.RecoveredErrors = strings.Split(run.RecoveredError, "\n")
	}

	var buys, sells []*domain.Signal
	for _, sig := range signals {
		if sig.Candidate {
			s.Candidates++
		}
		switch sig.Direction {
		case domain.DirectionBuy:
			buys = append(buys, sig)
		case domain.DirectionSell:
			sells = append(sells, sig)
		}
	}
	s.TopBuys = topCandidates(buys, topN)
	s.TopSells = topCandidates(sells, topN)
	return s
}

func topCandidates(signals []*domain.Signal, n int) []Candidate {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].TokenAddress < signals[j].TokenAddress
	})
	if len(signals) > n {
		signals = signals[:n]
	}
	out := make([]Candidate, 0, len(signals))
	for _, sig := range signals {
		out = append(out, Candidate{
			Chain:          sig.Chain,
			TokenAddress:   sig.TokenAddress,
			TokenSymbol:    sig.TokenSymbol,
			DominantWallet: sig.DominantWallet,
			Score:          sig.Score,
			Reason:         sig.Reason,
		})
	}
	return out
}
