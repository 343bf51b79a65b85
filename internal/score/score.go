package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/enrich"
	"smartmoney-collector/internal/idhash"
	"smartmoney-collector/internal/storage"
)

// biasSaturationUSD is the absolute netflow at which the bias term saturates.
const biasSaturationUSD = 1_000_000

// explosiveFactor scales the volume-z threshold into the explosive-move cutoff.
const explosiveFactor = 3.0

// labelScores is the fixed per-label lookup. A wallet's label score is
// the maximum over its labels; unlabeled wallets score 0.
var labelScores = map[string]float64{
	"fund":                     1.0,
	"smart_money":              0.9,
	"smart_dex_trader":         0.8,
	"anonymous_high_performer": 0.7,
	"whale":                    0.6,
}

// Scorer aggregates a token's admitted events into one signal per run.
type Scorer struct {
	signals storage.SignalStore
	cfg     config.ScoringConfig

	// usdScale saturates the notional term; liquidityFloor drives the
	// low-liquidity penalty indicator.
	usdScale       float64
	liquidityFloor float64
}

// NewScorer creates a scorer. usdScale and liquidityFloor usually come
// from the filtering configuration so the terms share one frame.
func NewScorer(signals storage.SignalStore, cfg config.ScoringConfig, usdScale, liquidityFloor float64) *Scorer {
	return &Scorer{
		signals:        signals,
		cfg:            cfg,
		usdScale:       usdScale,
		liquidityFloor: liquidityFloor,
	}
}

// Compute evaluates the weighted formula against a snapshot. The
// snapshot carries its own weights and penalties, so a stored signal
// replays exactly regardless of the live configuration.
func Compute(s domain.FeatureSnapshot) float64 {
	score := s.WeightUSD*s.USDScore +
		s.WeightLabel*s.LabelScore +
		s.WeightAlpha*s.AlphaScore +
		s.WeightVolZ*s.VolZScore +
		s.WeightBias*s.BiasScore
	if s.ExplosiveMove {
		score -= s.PenaltyExplosive
	}
	if s.LowLiquidity {
		score -= s.PenaltyLowLiq
	}
	return clamp01(score)
}

// ScoreToken aggregates the token's admitted events into one signal.
// Multiple events for a token are aggregated, never scored separately.
func (sc *Scorer) ScoreToken(ctx context.Context, runID string, key domain.TokenKey, events []*enrich.Enriched, now int64) (*domain.Signal, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("score token %s/%s: no admitted events", key.Chain, key.Address)
	}

	agg := aggregate(events)
	snapshot := sc.snapshot(agg)
	score := Compute(snapshot)

	direction, err := sc.direction(ctx, key, agg, score)
	if err != nil {
		return nil, err
	}

	return &domain.Signal{
		SignalID:       idhash.ComputeSignalID(runID, key.Chain, key.Address),
		RunID:          runID,
		Chain:          key.Chain,
		TokenAddress:   key.Address,
		TokenSymbol:    agg.symbol,
		DominantWallet: agg.dominantWallet,
		Score:          score,
		Direction:      direction,
		Reason:         sc.rationale(snapshot),
		Candidate:      score >= sc.cfg.SignalThreshold,
		Snapshot:       snapshot,
		GeneratedAt:    now,
	}, nil
}

// tokenAggregate folds a token's admitted events into scoring inputs.
type tokenAggregate struct {
	symbol         string
	totalUSD       float64
	netflow        float64
	volumeZ        float64
	walletAlpha    float64
	labels         []string
	dominantWallet string
	buys, sells    int
	liquidity      float64
}

func aggregate(events []*enrich.Enriched) tokenAggregate {
	agg := tokenAggregate{walletAlpha: 0.5, liquidity: 1}

	var dominantUSD float64
	var netflowAt int64 = -1
	labelSet := map[string]bool{}

	for _, in := range events {
		e := in.Event
		if agg.symbol == "" {
			agg.symbol = e.TokenSymbol
		}

		if usd := e.Features.USDNotional; usd != nil {
			agg.totalUSD += *usd
			if e.WalletAddress != "" && *usd > dominantUSD {
				dominantUSD = *usd
				agg.dominantWallet = e.WalletAddress
				if e.Features.WalletAlpha != nil {
					agg.walletAlpha = *e.Features.WalletAlpha
				}
			}
		}
		if nf := e.Features.SmartMoneyNetflow; nf != nil && e.OccurredAt > netflowAt {
			agg.netflow = *nf
			netflowAt = e.OccurredAt
		}
		if z := e.Features.VolumeZScore; z != nil && *z > agg.volumeZ {
			agg.volumeZ = *z
		}

		switch e.Direction {
		case domain.DirectionBuy:
			agg.buys++
		case domain.DirectionSell:
			agg.sells++
		}

		if in.Wallet != nil {
			for _, l := range in.Wallet.Labels {
				if !labelSet[l] {
					labelSet[l] = true
					agg.labels = append(agg.labels, l)
				}
			}
		}
	}

	// All events of a token share one token record; the first is enough.
	if t := events[0].Token; t != nil {
		agg.liquidity = t.LiquidityScore
	}
	return agg
}

// snapshot normalizes aggregate inputs into [0,1] terms and captures the
// live weights and penalties.
func (sc *Scorer) snapshot(agg tokenAggregate) domain.FeatureSnapshot {
	zTh := sc.cfg.VolumeZThreshold

	return domain.FeatureSnapshot{
		USDScore:   saturate(agg.totalUSD, sc.usdScale),
		LabelScore: labelScore(agg.labels),
		AlphaScore: clamp01(agg.walletAlpha),
		VolZScore:  clamp01(agg.volumeZ / (2 * zTh)),
		BiasScore:  saturate(math.Abs(agg.netflow), biasSaturationUSD),

		WeightUSD:        sc.cfg.WeightUSD,
		WeightLabel:      sc.cfg.WeightLabel,
		WeightAlpha:      sc.cfg.WeightAlpha,
		WeightVolZ:       sc.cfg.WeightVolZ,
		WeightBias:       sc.cfg.WeightBias,
		PenaltyExplosive: sc.cfg.PenaltyExplosive,
		PenaltyLowLiq:    sc.cfg.PenaltyLowLiq,

		ExplosiveMove: agg.volumeZ > explosiveFactor*zTh,
		LowLiquidity:  agg.liquidity < sc.liquidityFloor,

		TotalUSDNotional: agg.totalUSD,
		NetflowUSD:       agg.netflow,
		VolumeZ:          agg.volumeZ,
		WalletAlpha:      agg.walletAlpha,
	}
}

// direction is the majority sign of directional events; a stable score
// relative to the token's prior signal flips it to HOLD.
func (sc *Scorer) direction(ctx context.Context, key domain.TokenKey, agg tokenAggregate, score float64) (domain.Direction, error) {
	var dir domain.Direction
	switch {
	case agg.buys > agg.sells:
		dir = domain.DirectionBuy
	case agg.sells > agg.buys:
		dir = domain.DirectionSell
	default:
		if agg.netflow < 0 {
			dir = domain.DirectionSell
		} else {
			dir = domain.DirectionBuy
		}
	}

	prior, err := sc.signals.LatestByToken(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return dir, nil
	}
	if err != nil {
		return "", fmt.Errorf("load prior signal: %w", err)
	}
	if math.Abs(score-prior.Score) < sc.cfg.HoldDelta {
		return domain.DirectionHold, nil
	}
	return dir, nil
}

// rationale names every feature whose weighted contribution clears the
// materiality threshold, plus any penalty that fired.
func (sc *Scorer) rationale(s domain.FeatureSnapshot) string {
	type term struct {
		name         string
		contribution float64
	}
	terms := []term{
		{"usd_notional", s.WeightUSD * s.USDScore},
		{"labels", s.WeightLabel * s.LabelScore},
		{"wallet_alpha", s.WeightAlpha * s.AlphaScore},
		{"volume_z", s.WeightVolZ * s.VolZScore},
		{"netflow_bias", s.WeightBias * s.BiasScore},
	}

	var parts []string
	for _, t := range terms {
		if t.contribution >= sc.cfg.Materiality {
			parts = append(parts, t.name)
		}
	}
	if s.ExplosiveMove {
		parts = append(parts, "explosive_move")
	}
	if s.LowLiquidity {
		parts = append(parts, "low_liquidity")
	}
	return strings.Join(parts, ",")
}

func labelScore(labels []string) float64 {
	best := 0.0
	for _, l := range labels {
		if v, ok := labelScores[l]; ok && v > best {
			best = v
		}
	}
	return best
}

func saturate(v, scale float64) float64 {
	if scale <= 0 || v <= 0 {
		return 0
	}
	return math.Min(v/scale, 1)
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
