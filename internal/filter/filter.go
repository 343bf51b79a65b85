package filter

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/enrich"
	"smartmoney-collector/internal/storage"
)

// Rejection reasons, retained per run for report transparency.
const (
	ReasonUntradable     = "untradable"
	ReasonLowLiquidity   = "liquidity_below_floor"
	ReasonWalletExcluded = "wallet_excluded"
	ReasonTokenExcluded  = "token_excluded"
	ReasonBelowUSDFloor  = "below_usd_floor"
	ReasonCooldown       = "cooldown_active"
)

// riskFlagBlacklisted marks a token on the exclusion list.
const riskFlagBlacklisted = "blacklisted"

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted bool
	Reason   string // rejection reason, empty when admitted
}

// FilterSet gates enriched events before scoring. All must-conditions
// are required; the first failing one names the rejection.
type FilterSet struct {
	signals storage.SignalStore
	events  storage.EventStore
	cfg     config.FilteringConfig
}

// NewFilterSet creates a filter set over the given stores.
func NewFilterSet(signals storage.SignalStore, events storage.EventStore, cfg config.FilteringConfig) *FilterSet {
	return &FilterSet{signals: signals, events: events, cfg: cfg}
}

// Admit decides whether an enriched event may reach the scorer. now is
// the run's clock in Unix milliseconds.
func (f *FilterSet) Admit(ctx context.Context, in *enrich.Enriched, now int64) (Decision, error) {
	token := in.Token

	if !token.Tradable {
		return reject(ReasonUntradable), nil
	}
	if token.LiquidityScore < f.cfg.LiquidityMinScore {
		return reject(ReasonLowLiquidity), nil
	}
	if in.Wallet != nil && !in.Wallet.Contributes() {
		return reject(ReasonWalletExcluded), nil
	}
	for _, flag := range token.RiskFlags {
		if flag == riskFlagBlacklisted {
			return reject(ReasonTokenExcluded), nil
		}
	}

	// The USD floor only gates notional-bearing events; screener and
	// netflow rows carry no per-trade notional.
	if usd := in.Event.Features.USDNotional; usd != nil {
		floor, err := f.usdFloor(ctx, in.Event.TokenKey(), now)
		if err != nil {
			return Decision{}, err
		}
		if *usd < floor {
			return reject(ReasonBelowUSDFloor), nil
		}
	}

	ok, err := f.cooldownSatisfied(ctx, in.Event.TokenKey(), now)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return reject(ReasonCooldown), nil
	}

	return Decision{Admitted: true}, nil
}

// usdFloor returns the static floor, or in dynamic mode the configured
// quantile of trailing notionals. Too few samples fall back to the
// static fallback floor instead of an unstable quantile.
func (f *FilterSet) usdFloor(ctx context.Context, key domain.TokenKey, now int64) (float64, error) {
	if !f.cfg.DynamicFloor {
		return f.cfg.MinUSDNotional, nil
	}

	since := now - f.cfg.FloorLookback.Milliseconds()
	sample, err := f.events.USDNotionalHistory(ctx, key, since)
	if err != nil {
		return 0, fmt.Errorf("load notional history: %w", err)
	}
	if len(sample) < f.cfg.FloorMinSamples {
		return f.cfg.FloorFallback, nil
	}
	return quantile(sample, f.cfg.FloorQuantile), nil
}

// cooldownSatisfied reports whether the token has no signal inside the
// cooldown window.
func (f *FilterSet) cooldownSatisfied(ctx context.Context, key domain.TokenKey, now int64) (bool, error) {
	prior, err := f.signals.LatestByToken(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load latest signal: %w", err)
	}
	return now-prior.GeneratedAt >= f.cfg.Cooldown.Milliseconds(), nil
}

// quantile computes the q-quantile with linear interpolation.
func quantile(sample []float64, q float64) float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

func reject(reason string) Decision {
	return Decision{Admitted: false, Reason: reason}
}
