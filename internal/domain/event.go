package domain

// Direction is the trade side carried by directional events.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Features holds the numeric features attached to an event.
// Known features are typed fields; source-specific extras that have no
// dedicated field go into Extra so new provider columns survive a round trip.
type Features struct {
	USDNotional       *float64           // large-trade notional, USD, >= 0 when present
	VolumeJump        *float64           // anomaly-screener volume jump ratio or z-score
	SmartMoneyNetflow *float64           // signed aggregate USD flow; positive = accumulation
	VolumeZScore      *float64           // rolling z-score, set by enrichment
	WalletAlpha       *float64           // wallet alpha in [0,1], set by enrichment
	Extra             map[string]float64 // unknown extension bucket
}

// Event is a single normalized observation of on-chain activity.
// Corresponds to the events table in PostgreSQL; EventID is the
// deterministic idempotency key (see internal/idhash).
type Event struct {
	EventID       string // PRIMARY KEY, deterministic hash
	Source        Source // LARGE_TRADE | ANOMALY_SCREENER | NETFLOW_AGGREGATE
	Chain         string // chain identifier, e.g. "ethereum", "solana"
	TokenAddress  string // token contract address (may be empty for netflow rows)
	TokenSymbol   string
	WalletAddress string    // origin wallet, empty for aggregate sources
	Direction     Direction // BUY/SELL for directional events, empty otherwise
	TxHash        string    // unique per chain when present
	OccurredAt    int64     // Unix timestamp in milliseconds, UTC
	Features      Features
	CreatedAt     int64 // record creation timestamp (ms)
}

// TokenKey returns the chain-qualified token identity used for grouping.
func (e *Event) TokenKey() TokenKey {
	return TokenKey{Chain: e.Chain, Address: e.TokenAddress}
}

// CloneFeatures returns a deep copy of the event's features.
// Enrichment writes into the copy, never into stored state.
func (e *Event) CloneFeatures() Features {
	f := e.Features
	if e.Features.Extra != nil {
		f.Extra = make(map[string]float64, len(e.Features.Extra))
		for k, v := range e.Features.Extra {
			f.Extra[k] = v
		}
	}
	return f
}
