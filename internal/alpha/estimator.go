package alpha

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// historyLimit bounds how many of a wallet's most recent events feed one
// alpha computation.
const historyLimit = 500

// neutralAlpha is assigned to wallets with too little qualifying history.
const neutralAlpha = 0.5

// Result is one wallet's recomputed alpha.
type Result struct {
	AlphaScore float64 // [0,1]
	WinRate1h  float64
	WinRate4h  float64
	WinRate24h float64
	Events     int // qualifying directional events considered
}

// Estimator derives wallet alpha from stored event history.
//
// The hit-rate proxy: a directional large trade is a "hit" for a window
// when a later large trade on the same token with the same direction
// lands inside that window. Corroborated entries stand in for realized
// returns, so the estimator needs no price feed. Hits are weighted by
// exponential time decay, 0.5^(age/half-life), so stale history fades.
type Estimator struct {
	events  storage.EventStore
	wallets storage.WalletStore
	cfg     config.AlphaConfig
	now     func() int64 // ms clock, injectable in tests
}

// NewEstimator creates an estimator over the given stores.
func NewEstimator(events storage.EventStore, wallets storage.WalletStore, cfg config.AlphaConfig) *Estimator {
	return &Estimator{
		events:  events,
		wallets: wallets,
		cfg:     cfg,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the estimator's clock. Computation is a pure
// function of (history, clock), so a fixed clock makes it reproducible.
func (e *Estimator) WithClock(now func() int64) *Estimator {
	e.now = now
	return e
}

// Compute recomputes alpha for one wallet from its stored history.
// Wallets with fewer than MinEvents qualifying events get the neutral score.
func (e *Estimator) Compute(ctx context.Context, address string) (Result, error) {
	history, err := e.events.GetByWallet(ctx, address, historyLimit)
	if err != nil {
		return Result{}, fmt.Errorf("load wallet history: %w", err)
	}

	now := e.now()
	halfLife := float64(e.cfg.HalfLife.Milliseconds())

	var weightSum, hits1h, hits4h, hits24h float64
	qualifying := 0

	for _, ev := range history {
		if ev.Source != domain.SourceLargeTrade || ev.Direction == "" || ev.Direction == domain.DirectionHold {
			continue
		}
		qualifying++

		age := float64(now - ev.OccurredAt)
		if age < 0 {
			age = 0
		}
		weight := math.Pow(0.5, age/halfLife)
		weightSum += weight

		later, err := e.events.GetRecentByToken(ctx, ev.TokenKey(), ev.OccurredAt)
		if err != nil {
			return Result{}, fmt.Errorf("load token history: %w", err)
		}
		h1, h4, h24 := corroborated(ev, later, e.cfg)
		if h1 {
			hits1h += weight
		}
		if h4 {
			hits4h += weight
		}
		if h24 {
			hits24h += weight
		}
	}

	if qualifying < e.cfg.MinEvents || weightSum == 0 {
		return Result{AlphaScore: neutralAlpha, Events: qualifying}, nil
	}

	res := Result{
		WinRate1h:  hits1h / weightSum,
		WinRate4h:  hits4h / weightSum,
		WinRate24h: hits24h / weightSum,
		Events:     qualifying,
	}
	// Fast corroboration is the strongest signal, so the short window
	// carries the largest share.
	res.AlphaScore = clamp01(0.5*res.WinRate1h + 0.3*res.WinRate4h + 0.2*res.WinRate24h)
	return res, nil
}

// corroborated checks each window for a later same-direction large trade
// on the same token from another transaction.
func corroborated(ev *domain.Event, later []*domain.Event, cfg config.AlphaConfig) (h1, h4, h24 bool) {
	for _, other := range later {
		if other.EventID == ev.EventID || other.Source != domain.SourceLargeTrade {
			continue
		}
		if other.Direction != ev.Direction || other.OccurredAt <= ev.OccurredAt {
			continue
		}
		gap := other.OccurredAt - ev.OccurredAt
		if gap <= cfg.Window1h.Milliseconds() {
			h1 = true
		}
		if gap <= cfg.Window4h.Milliseconds() {
			h4 = true
		}
		if gap <= cfg.Window24h.Milliseconds() {
			h24 = true
		}
		if h1 && h4 && h24 {
			return
		}
	}
	return
}

// RefreshAll recomputes alpha for the highest-activity wallets and
// returns the updated aggregates. Existing labels, status and notes are
// preserved; the caller persists the result (single-writer commit).
func (e *Estimator) RefreshAll(ctx context.Context, limit int) ([]*domain.Wallet, error) {
	if limit <= 0 {
		limit = e.cfg.TopWallets
	}
	addresses, err := e.events.TopWalletsByActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}

	now := e.now()
	updated := make([]*domain.Wallet, 0, len(addresses))
	for _, addr := range addresses {
		res, err := e.Compute(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("compute alpha for %s: %w", addr, err)
		}

		w, err := e.wallets.Get(ctx, addr)
		if errors.Is(err, storage.ErrNotFound) {
			w = &domain.Wallet{Address: addr, Status: domain.WalletActive}
		} else if err != nil {
			return nil, fmt.Errorf("load wallet %s: %w", addr, err)
		}

		w.AlphaScore = res.AlphaScore
		w.WinRate1h = res.WinRate1h
		w.WinRate4h = res.WinRate4h
		w.WinRate24h = res.WinRate24h
		w.UpdatedAt = now
		updated = append(updated, w)
	}
	return updated, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
