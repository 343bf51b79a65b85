package domain

// TokenKey is the composite identity of a tracked contract.
type TokenKey struct {
	Chain   string
	Address string
}

// Token is a tracked contract on a chain.
// Liquidity and volume-jump metrics are refreshed every run that touches
// the token; values from an older run are expired (see RefreshedRun).
type Token struct {
	Chain          string // composite key with Address
	Address        string
	Symbol         string
	LiquidityScore float64
	Tradable       bool   // listed on a recognized exchange
	ExchangeSymbol string // venue symbol mapping, empty if untradable
	RiskFlags      []string
	VolumeJump     float64
	RefreshedRun   string // run_id of the last enrichment refresh
	UpdatedAt      int64  // ms
}

// Key returns the token's composite key.
func (t *Token) Key() TokenKey {
	return TokenKey{Chain: t.Chain, Address: t.Address}
}

// FreshFor reports whether the token's per-run metrics were computed in
// the given run. Stale metrics must be recomputed, not reused silently.
func (t *Token) FreshFor(runID string) bool {
	return t.RefreshedRun == runID
}
