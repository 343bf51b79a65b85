package domain

// Source identifies which upstream feed produced an event.
type Source string

const (
	// SourceLargeTrade is a single smart-money DEX trade above the provider's size floor.
	SourceLargeTrade Source = "LARGE_TRADE"
	// SourceAnomalyScreener is a token-level volume/volatility anomaly observation.
	SourceAnomalyScreener Source = "ANOMALY_SCREENER"
	// SourceNetflowAggregate is aggregate signed USD flow for a smart-money cohort.
	SourceNetflowAggregate Source = "NETFLOW_AGGREGATE"
)

// Valid reports whether s is one of the known source kinds.
func (s Source) Valid() bool {
	switch s {
	case SourceLargeTrade, SourceAnomalyScreener, SourceNetflowAggregate:
		return true
	}
	return false
}
