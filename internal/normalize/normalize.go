package normalize

import (
	"errors"
	"fmt"
	"strings"

	"smartmoney-collector/internal/adapter"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/idhash"
)

// ErrMalformedRecord indicates a provider row that cannot become an
// event. The wrapping error names the offending field. Batch
// normalization skips and counts these; it never aborts.
var ErrMalformedRecord = errors.New("malformed record")

func malformed(source domain.Source, field, reason string) error {
	return fmt.Errorf("%s record: field %q %s: %w", source, field, reason, ErrMalformedRecord)
}

// Record maps one raw provider row of the given source kind onto
// exactly one Event, or returns ErrMalformedRecord. now stamps CreatedAt.
func Record(source domain.Source, r adapter.RawRecord, now int64) (*domain.Event, error) {
	switch source {
	case domain.SourceLargeTrade:
		return largeTrade(r, now)
	case domain.SourceAnomalyScreener:
		return anomalyScreener(r, now)
	case domain.SourceNetflowAggregate:
		return netflowAggregate(r, now)
	default:
		return nil, fmt.Errorf("unknown source kind %q: %w", source, ErrMalformedRecord)
	}
}

// Batch normalizes a batch with partial-failure semantics: malformed
// rows are dropped and counted, well-formed rows always survive.
func Batch(source domain.Source, records []adapter.RawRecord, now int64) ([]*domain.Event, int) {
	events := make([]*domain.Event, 0, len(records))
	skipped := 0
	for _, r := range records {
		e, err := Record(source, r, now)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, e)
	}
	return events, skipped
}

func tokenIdentity(source domain.Source, r adapter.RawRecord) (chain, address, symbol string, err error) {
	chain, ok := r.String("chain")
	if !ok || chain == "" {
		return "", "", "", malformed(source, "chain", "is missing")
	}
	address, ok = r.String("token_address")
	if !ok || address == "" {
		return "", "", "", malformed(source, "token_address", "is missing")
	}
	if !validAddress(chain, address) {
		return "", "", "", malformed(source, "token_address", "is not a valid address")
	}
	symbol, _ = r.String("token_symbol")
	return chain, address, symbol, nil
}

func occurredAt(source domain.Source, r adapter.RawRecord) (int64, error) {
	ts, ok := r.Int64("timestamp_ms")
	if !ok {
		return 0, malformed(source, "timestamp_ms", "is missing")
	}
	if ts <= 0 {
		return 0, malformed(source, "timestamp_ms", "is not positive")
	}
	return ts, nil
}

func largeTrade(r adapter.RawRecord, now int64) (*domain.Event, error) {
	source := domain.SourceLargeTrade

	chain, address, symbol, err := tokenIdentity(source, r)
	if err != nil {
		return nil, err
	}

	wallet, ok := r.String("wallet_address")
	if !ok || wallet == "" {
		return nil, malformed(source, "wallet_address", "is missing")
	}
	if !validAddress(chain, wallet) {
		return nil, malformed(source, "wallet_address", "is not a valid address")
	}

	dir, ok := r.String("direction")
	if !ok {
		return nil, malformed(source, "direction", "is missing")
	}
	var direction domain.Direction
	switch strings.ToUpper(dir) {
	case string(domain.DirectionBuy):
		direction = domain.DirectionBuy
	case string(domain.DirectionSell):
		direction = domain.DirectionSell
	default:
		return nil, malformed(source, "direction", "is not buy or sell")
	}

	usd, ok := r.Float("usd_value")
	if !ok {
		return nil, malformed(source, "usd_value", "is missing")
	}
	if usd < 0 {
		return nil, malformed(source, "usd_value", "is negative")
	}

	ts, err := occurredAt(source, r)
	if err != nil {
		return nil, err
	}

	txHash, _ := r.String("tx_hash")

	return &domain.Event{
		EventID:       idhash.ComputeEventID(string(source), chain, address, txHash, ts),
		Source:        source,
		Chain:         chain,
		TokenAddress:  address,
		TokenSymbol:   symbol,
		WalletAddress: wallet,
		Direction:     direction,
		TxHash:        txHash,
		OccurredAt:    ts,
		Features:      domain.Features{USDNotional: &usd},
		CreatedAt:     now,
	}, nil
}

func anomalyScreener(r adapter.RawRecord, now int64) (*domain.Event, error) {
	source := domain.SourceAnomalyScreener

	chain, address, symbol, err := tokenIdentity(source, r)
	if err != nil {
		return nil, err
	}

	jump, ok := r.Float("volume_jump")
	if !ok {
		return nil, malformed(source, "volume_jump", "is missing")
	}
	if jump < 0 {
		return nil, malformed(source, "volume_jump", "is negative")
	}

	ts, err := occurredAt(source, r)
	if err != nil {
		return nil, err
	}

	return &domain.Event{
		EventID:      idhash.ComputeEventID(string(source), chain, address, "", ts),
		Source:       source,
		Chain:        chain,
		TokenAddress: address,
		TokenSymbol:  symbol,
		OccurredAt:   ts,
		Features:     domain.Features{VolumeJump: &jump},
		CreatedAt:    now,
	}, nil
}

func netflowAggregate(r adapter.RawRecord, now int64) (*domain.Event, error) {
	source := domain.SourceNetflowAggregate

	chain, address, symbol, err := tokenIdentity(source, r)
	if err != nil {
		return nil, err
	}

	// Netflow is signed: negative means smart money is exiting.
	netflow, ok := r.Float("netflow_usd")
	if !ok {
		return nil, malformed(source, "netflow_usd", "is missing")
	}

	ts, err := occurredAt(source, r)
	if err != nil {
		return nil, err
	}

	return &domain.Event{
		EventID:      idhash.ComputeEventID(string(source), chain, address, "", ts),
		Source:       source,
		Chain:        chain,
		TokenAddress: address,
		TokenSymbol:  symbol,
		OccurredAt:   ts,
		Features:     domain.Features{SmartMoneyNetflow: &netflow},
		CreatedAt:    now,
	}, nil
}
