package filter

import (
	"context"
	"testing"
	"time"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/enrich"
	"smartmoney-collector/internal/storage/memory"
)

func filterConfig() config.FilteringConfig {
	return config.FilteringConfig{
		MinUSDNotional:    100000,
		LiquidityMinScore: 0.5,
		Cooldown:          30 * time.Minute,
		FloorQuantile:     0.90,
		FloorLookback:     7 * 24 * time.Hour,
		FloorMinSamples:   30,
		FloorFallback:     10000,
	}
}

func fptr(v float64) *float64 { return &v }

func admissible(usd float64) *enrich.Enriched {
	return &enrich.Enriched{
		Event: &domain.Event{
			EventID:       "ev",
			Source:        domain.SourceLargeTrade,
			Chain:         "ethereum",
			TokenAddress:  "0xtoken",
			WalletAddress: "0xwallet",
			Direction:     domain.DirectionBuy,
			OccurredAt:    1000,
			Features:      domain.Features{USDNotional: fptr(usd)},
		},
		Wallet: &domain.Wallet{Address: "0xwallet", Status: domain.WalletActive, AlphaScore: 0.8},
		Token: &domain.Token{
			Chain:          "ethereum",
			Address:        "0xtoken",
			Symbol:         "ALPHA",
			LiquidityScore: 0.8,
			Tradable:       true,
			ExchangeSymbol: "ALPHAUSDT",
		},
	}
}

func newFilterUnderTest(cfg config.FilteringConfig) (*FilterSet, *memory.SignalStore, *memory.EventStore) {
	signals := memory.NewSignalStore()
	events := memory.NewEventStore()
	return NewFilterSet(signals, events, cfg), signals, events
}

func TestAdmit_MustConditions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*enrich.Enriched)
		reason string
	}{
		{"untradable", func(e *enrich.Enriched) { e.Token.Tradable = false }, ReasonUntradable},
		{"low liquidity", func(e *enrich.Enriched) { e.Token.LiquidityScore = 0.3 }, ReasonLowLiquidity},
		{"excluded wallet", func(e *enrich.Enriched) { e.Wallet.Status = domain.WalletExcluded }, ReasonWalletExcluded},
		{"blacklisted token", func(e *enrich.Enriched) { e.Token.RiskFlags = []string{"blacklisted"} }, ReasonTokenExcluded},
		{"below usd floor", func(e *enrich.Enriched) { e.Event.Features.USDNotional = fptr(5000) }, ReasonBelowUSDFloor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, _, _ := newFilterUnderTest(filterConfig())
			in := admissible(150000)
			tc.mutate(in)

			d, err := f.Admit(context.Background(), in, 2000)
			if err != nil {
				t.Fatalf("Admit failed: %v", err)
			}
			if d.Admitted {
				t.Fatal("expected rejection")
			}
			if d.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}

func TestAdmit_PassesWhenClean(t *testing.T) {
	f, _, _ := newFilterUnderTest(filterConfig())
	d, err := f.Admit(context.Background(), admissible(150000), 2000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !d.Admitted || d.Reason != "" {
		t.Errorf("expected clean admission, got %+v", d)
	}
}

func TestAdmit_Cooldown(t *testing.T) {
	f, signals, _ := newFilterUnderTest(filterConfig())
	ctx := context.Background()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	_ = signals.Insert(ctx, &domain.Signal{
		SignalID:     "prior",
		RunID:        "run-0",
		Chain:        "ethereum",
		TokenAddress: "0xtoken",
		Score:        0.7,
		Direction:    domain.DirectionBuy,
		GeneratedAt:  now - 10*60_000, // 10 minutes ago
	})

	d, err := f.Admit(ctx, admissible(150000), now)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if d.Admitted || d.Reason != ReasonCooldown {
		t.Errorf("expected cooldown rejection, got %+v", d)
	}

	// Outside the window admission resumes.
	d, err = f.Admit(ctx, admissible(150000), now+25*60_000)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !d.Admitted {
		t.Errorf("expected admission after cooldown elapsed, got %+v", d)
	}
}

func TestAdmit_DynamicFloorFallback(t *testing.T) {
	cfg := filterConfig()
	cfg.DynamicFloor = true
	cfg.FloorMinSamples = 30
	f, _, events := newFilterUnderTest(cfg)
	ctx := context.Background()

	// One below the minimum sample count: the quantile must not be used.
	now := int64(1_700_000_000_000)
	for i := 0; i < cfg.FloorMinSamples-1; i++ {
		usd := 1_000_000.0
		_, _ = events.Upsert(ctx, &domain.Event{
			EventID:      string(rune('a')) + string(rune('0'+i%10)) + string(rune('0'+i/10)),
			Source:       domain.SourceLargeTrade,
			Chain:        "ethereum",
			TokenAddress: "0xtoken",
			Direction:    domain.DirectionBuy,
			OccurredAt:   now - int64(i)*60_000,
			Features:     domain.Features{USDNotional: &usd},
		})
	}

	// 50k clears the 10k fallback but not a quantile of 1M notionals.
	d, err := f.Admit(ctx, admissible(50000), now)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !d.Admitted {
		t.Errorf("below min samples the static fallback must apply, got %+v", d)
	}
}

func TestAdmit_DynamicFloorQuantile(t *testing.T) {
	cfg := filterConfig()
	cfg.DynamicFloor = true
	cfg.FloorMinSamples = 5
	f, _, events := newFilterUnderTest(cfg)
	ctx := context.Background()

	now := int64(1_700_000_000_000)
	for i := 0; i < 10; i++ {
		usd := float64((i + 1) * 100_000)
		_, _ = events.Upsert(ctx, &domain.Event{
			EventID:      "hist" + string(rune('0'+i)),
			Source:       domain.SourceLargeTrade,
			Chain:        "ethereum",
			TokenAddress: "0xtoken",
			Direction:    domain.DirectionBuy,
			OccurredAt:   now - int64(i)*60_000,
			Features:     domain.Features{USDNotional: &usd},
		})
	}

	// The 0.90 quantile of 100k..1M sits at 910k.
	d, err := f.Admit(ctx, admissible(500_000), now)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if d.Admitted || d.Reason != ReasonBelowUSDFloor {
		t.Errorf("expected rejection below dynamic quantile floor, got %+v", d)
	}

	d, err = f.Admit(ctx, admissible(950_000), now)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !d.Admitted {
		t.Errorf("expected admission above dynamic quantile floor, got %+v", d)
	}
}

func TestQuantile(t *testing.T) {
	sample := []float64{1, 2, 3, 4, 5}
	if q := quantile(sample, 0.5); q != 3 {
		t.Errorf("expected median 3, got %f", q)
	}
	if q := quantile(sample, 1.0); q != 5 {
		t.Errorf("expected max 5, got %f", q)
	}
	if q := quantile([]float64{7}, 0.9); q != 7 {
		t.Errorf("single sample quantile should be that sample, got %f", q)
	}
}
