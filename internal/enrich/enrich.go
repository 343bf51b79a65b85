package enrich

import (
	"context"
	"errors"
	"fmt"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage"
)

// Neutral defaults applied on lookup miss. A missing wallet or token is
// not an error; enrichment proceeds and the filter decides admission.
const (
	neutralAlpha     = 0.5
	neutralLiquidity = 0.5
)

// Enriched is one event augmented with the wallet and token state it was
// scored against. Event features are a copy; stored state is never touched.
type Enriched struct {
	Event  *domain.Event
	Wallet *domain.Wallet
	Token  *domain.Token
}

// Enricher attaches wallet and token context onto normalized events.
// It only reads from the stores; aggregate updates belong to the
// orchestrator's commit phase.
type Enricher struct {
	events  storage.EventStore
	wallets storage.WalletStore
	tokens  storage.TokenStore

	// lookback bounds the same-token history window feeding the volume
	// z-score, in milliseconds.
	lookback int64
}

// NewEnricher creates an enricher over the given read-only stores.
func NewEnricher(events storage.EventStore, wallets storage.WalletStore, tokens storage.TokenStore, lookbackMs int64) *Enricher {
	return &Enricher{
		events:   events,
		wallets:  wallets,
		tokens:   tokens,
		lookback: lookbackMs,
	}
}

// Enrich augments one event. The returned event is a copy with
// WalletAlpha and VolumeZScore filled in; wallet and token reflect
// current state with neutral defaults on miss.
func (en *Enricher) Enrich(ctx context.Context, e *domain.Event, runID string, labels map[string][]string) (*Enriched, error) {
	out := *e
	out.Features = e.CloneFeatures()

	wallet, err := en.lookupWallet(ctx, e.WalletAddress, labels)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		alpha := wallet.AlphaScore
		out.Features.WalletAlpha = &alpha
	}

	token, err := en.lookupToken(ctx, e, runID)
	if err != nil {
		return nil, err
	}

	if out.Features.USDNotional != nil {
		z, err := en.volumeZ(ctx, e)
		if err != nil {
			return nil, err
		}
		out.Features.VolumeZScore = &z
	}

	return &Enriched{Event: &out, Wallet: wallet, Token: token}, nil
}

// lookupWallet resolves wallet state, folding in freshly fetched labels.
// Aggregate-source events carry no wallet; those return nil.
func (en *Enricher) lookupWallet(ctx context.Context, address string, labels map[string][]string) (*domain.Wallet, error) {
	if address == "" {
		return nil, nil
	}

	w, err := en.wallets.Get(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		w = &domain.Wallet{
			Address:    address,
			AlphaScore: neutralAlpha,
			Status:     domain.WalletActive,
		}
	} else if err != nil {
		return nil, fmt.Errorf("lookup wallet %s: %w", address, err)
	} else {
		wCopy := *w
		w = &wCopy
	}

	if fresh, ok := labels[address]; ok && len(fresh) > 0 {
		w.Labels = mergeLabels(w.Labels, fresh)
	}
	return w, nil
}

// lookupToken resolves token state. Unknown tokens get neutral liquidity
// and symbol-derived tradability; per-run metrics are marked refreshed
// for this run so stale values from older runs are never reused.
func (en *Enricher) lookupToken(ctx context.Context, e *domain.Event, runID string) (*domain.Token, error) {
	t, err := en.tokens.Get(ctx, e.TokenKey())
	if errors.Is(err, storage.ErrNotFound) {
		t = &domain.Token{
			Chain:          e.Chain,
			Address:        e.TokenAddress,
			Symbol:         e.TokenSymbol,
			LiquidityScore: neutralLiquidity,
		}
	} else if err != nil {
		return nil, fmt.Errorf("lookup token %s/%s: %w", e.Chain, e.TokenAddress, err)
	} else {
		tCopy := *t
		t = &tCopy
	}

	if t.Symbol == "" {
		t.Symbol = e.TokenSymbol
	}
	t.ExchangeSymbol = mapExchangeSymbol(t.Symbol)
	t.Tradable = t.ExchangeSymbol != ""

	if !t.FreshFor(runID) {
		t.VolumeJump = 0
		t.RefreshedRun = runID
	}
	if e.Features.VolumeJump != nil && *e.Features.VolumeJump > t.VolumeJump {
		t.VolumeJump = *e.Features.VolumeJump
	}
	return t, nil
}

// volumeZ scores the event's notional against the token's trailing history.
func (en *Enricher) volumeZ(ctx context.Context, e *domain.Event) (float64, error) {
	since := e.OccurredAt - en.lookback
	sample, err := en.events.USDNotionalHistory(ctx, e.TokenKey(), since)
	if err != nil {
		return 0, fmt.Errorf("load notional history: %w", err)
	}
	return zScore(sample, *e.Features.USDNotional), nil
}

// mapExchangeSymbol maps a token symbol onto its venue listing. Tokens
// without a symbol have no listing and are untradable.
func mapExchangeSymbol(symbol string) string {
	if symbol == "" {
		return ""
	}
	return symbol + "USDT"
}

func mergeLabels(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, l := range existing {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, l := range fresh {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
