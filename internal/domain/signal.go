package domain

// FeatureSnapshot captures every input of the scoring formula at signal
// time. The snapshot fully determines the score: re-running the formula
// against it must reproduce the stored score exactly.
type FeatureSnapshot struct {
	// Normalized term values, each in [0,1].
	USDScore   float64 `json:"usd_score"`
	LabelScore float64 `json:"label_score"`
	AlphaScore float64 `json:"alpha_score"`
	VolZScore  float64 `json:"volz_score"`
	BiasScore  float64 `json:"bias_score"`

	// Weights and penalties applied at signal time. Stored so that a
	// replay does not depend on the live configuration.
	WeightUSD        float64 `json:"weight_usd"`
	WeightLabel      float64 `json:"weight_label"`
	WeightAlpha      float64 `json:"weight_alpha"`
	WeightVolZ       float64 `json:"weight_volz"`
	WeightBias       float64 `json:"weight_bias"`
	PenaltyExplosive float64 `json:"penalty_explosive"`
	PenaltyLowLiq    float64 `json:"penalty_low_liq"`

	// Penalty indicators.
	ExplosiveMove bool `json:"explosive_move"`
	LowLiquidity  bool `json:"low_liquidity"`

	// Raw inputs kept for audit.
	TotalUSDNotional float64 `json:"total_usd_notional"`
	NetflowUSD       float64 `json:"netflow_usd"`
	VolumeZ          float64 `json:"volume_z"`
	WalletAlpha      float64 `json:"wallet_alpha"`
}

// Signal is the pipeline's output unit: a scored opinion about a token
// at a point in time. Immutable once persisted.
type Signal struct {
	SignalID       string // PRIMARY KEY, deterministic hash
	RunID          string
	Chain          string
	TokenAddress   string
	TokenSymbol    string
	DominantWallet string    // highest-notional contributing wallet, may be empty
	Score          float64   // clamped to [0,1]
	Direction      Direction // BUY | SELL | HOLD
	Reason         string    // comma-joined names of material features
	Candidate      bool      // Score >= configured threshold
	Snapshot       FeatureSnapshot
	GeneratedAt    int64 // ms, UTC
}

// TokenKey returns the chain-qualified token identity.
func (s *Signal) TokenKey() TokenKey {
	return TokenKey{Chain: s.Chain, Address: s.TokenAddress}
}
