package enrich

import (
	"context"
	"math"
	"testing"

	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/storage/memory"
)

const lookbackMs = 7 * 24 * 3600 * 1000

func fptr(v float64) *float64 { return &v }

func newEnricherUnderTest() (*Enricher, *memory.EventStore, *memory.WalletStore, *memory.TokenStore) {
	events := memory.NewEventStore()
	wallets := memory.NewWalletStore()
	tokens := memory.NewTokenStore()
	return NewEnricher(events, wallets, tokens, lookbackMs), events, wallets, tokens
}

func tradeEvent(id string, usd float64, occurredAt int64) *domain.Event {
	return &domain.Event{
		EventID:       id,
		Source:        domain.SourceLargeTrade,
		Chain:         "ethereum",
		TokenAddress:  "0xtoken",
		TokenSymbol:   "ALPHA",
		WalletAddress: "0xwallet",
		Direction:     domain.DirectionBuy,
		OccurredAt:    occurredAt,
		Features:      domain.Features{USDNotional: fptr(usd)},
	}
}

func TestEnrich_NeutralDefaultsOnMiss(t *testing.T) {
	en, _, _, _ := newEnricherUnderTest()
	ctx := context.Background()

	out, err := en.Enrich(ctx, tradeEvent("a", 150000, 1000), "run-1", nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if out.Wallet == nil || out.Wallet.AlphaScore != 0.5 {
		t.Errorf("unknown wallet should default to neutral alpha, got %+v", out.Wallet)
	}
	if out.Token == nil || out.Token.LiquidityScore != 0.5 {
		t.Errorf("unknown token should default to neutral liquidity, got %+v", out.Token)
	}
	if !out.Token.Tradable || out.Token.ExchangeSymbol != "ALPHAUSDT" {
		t.Errorf("symbol-bearing token should map to a venue listing, got %+v", out.Token)
	}
	if out.Event.Features.WalletAlpha == nil || *out.Event.Features.WalletAlpha != 0.5 {
		t.Error("wallet alpha should be attached to the event features")
	}
}

func TestEnrich_KnownStateAndLabels(t *testing.T) {
	en, _, wallets, tokens := newEnricherUnderTest()
	ctx := context.Background()

	_ = wallets.Upsert(ctx, &domain.Wallet{
		Address:    "0xwallet",
		Labels:     []string{"fund"},
		AlphaScore: 0.8,
		Status:     domain.WalletActive,
	})
	_ = tokens.Upsert(ctx, &domain.Token{
		Chain:          "ethereum",
		Address:        "0xtoken",
		Symbol:         "ALPHA",
		LiquidityScore: 0.9,
	})

	labels := map[string][]string{"0xwallet": {"fund", "smart_money"}}
	out, err := en.Enrich(ctx, tradeEvent("a", 150000, 1000), "run-1", labels)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if *out.Event.Features.WalletAlpha != 0.8 {
		t.Errorf("expected stored alpha 0.8, got %f", *out.Event.Features.WalletAlpha)
	}
	if len(out.Wallet.Labels) != 2 {
		t.Errorf("expected merged labels fund+smart_money, got %v", out.Wallet.Labels)
	}
	if out.Token.LiquidityScore != 0.9 {
		t.Errorf("expected stored liquidity, got %f", out.Token.LiquidityScore)
	}

	// Enrichment never writes back.
	stored, _ := wallets.Get(ctx, "0xwallet")
	if len(stored.Labels) != 1 {
		t.Error("enrichment must not mutate stored wallet state")
	}
}

func TestEnrich_VolumeZ(t *testing.T) {
	en, events, _, _ := newEnricherUnderTest()
	ctx := context.Background()

	// History: notionals wobbling around 100k, then a 200k outlier.
	for i, usd := range []float64{90000, 100000, 110000, 100000} {
		_, _ = events.Upsert(ctx, tradeEvent(string(rune('a'+i)), usd, int64(1000+i)))
	}

	out, err := en.Enrich(ctx, tradeEvent("z", 200000, 5000), "run-1", nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	z := out.Event.Features.VolumeZScore
	if z == nil {
		t.Fatal("outlier notional should get a z-score")
	}
	if *z <= 0 {
		t.Fatalf("outlier notional should get a positive z-score, got %f", *z)
	}
}

func TestEnrich_ZNeutralOnSmallSample(t *testing.T) {
	en, events, _, _ := newEnricherUnderTest()
	ctx := context.Background()

	_, _ = events.Upsert(ctx, tradeEvent("a", 100000, 1000))

	out, err := en.Enrich(ctx, tradeEvent("z", 900000, 2000), "run-1", nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if z := out.Event.Features.VolumeZScore; z == nil || *z != 0 {
		t.Errorf("tiny sample should yield neutral z 0, got %v", z)
	}
}

func TestZScore(t *testing.T) {
	sample := []float64{10, 12, 8, 10, 10}
	z := zScore(sample, 10)
	if math.Abs(z) > 1e-9 {
		t.Errorf("mean input should score ~0, got %f", z)
	}
	if zScore([]float64{5, 5, 5, 5}, 9) != 0 {
		t.Error("degenerate sample (zero variance) should score 0")
	}
}

func TestEnrich_VolumeJumpRefresh(t *testing.T) {
	en, _, _, tokens := newEnricherUnderTest()
	ctx := context.Background()

	_ = tokens.Upsert(ctx, &domain.Token{
		Chain:        "ethereum",
		Address:      "0xtoken",
		Symbol:       "ALPHA",
		VolumeJump:   9.9,
		RefreshedRun: "run-old",
	})

	e := tradeEvent("a", 100000, 1000)
	e.Source = domain.SourceAnomalyScreener
	e.WalletAddress = ""
	e.Direction = ""
	e.Features = domain.Features{VolumeJump: fptr(2.4)}

	out, err := en.Enrich(ctx, e, "run-new", nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if out.Token.VolumeJump != 2.4 {
		t.Errorf("stale volume jump must be recomputed, got %f", out.Token.VolumeJump)
	}
	if out.Token.RefreshedRun != "run-new" {
		t.Errorf("token should be marked refreshed for the current run, got %q", out.Token.RefreshedRun)
	}
}
