package domain

// WalletStatus marks whether a wallet may contribute to signals.
type WalletStatus string

const (
	WalletActive   WalletStatus = "ACTIVE"
	WalletExcluded WalletStatus = "EXCLUDED" // known exchange, team address, etc.
)

// Wallet is an address tracked for alpha scoring.
// Created on first sighting, never deleted; exclusion is a status flip.
type Wallet struct {
	Address    string // PRIMARY KEY
	Labels     []string
	AlphaScore float64 // clamped to [0,1]
	WinRate1h  float64
	WinRate4h  float64
	WinRate24h float64
	Status     WalletStatus
	Notes      string
	UpdatedAt  int64 // ms
}

// Contributes reports whether the wallet may feed signal generation.
func (w *Wallet) Contributes() bool {
	return w.Status != WalletExcluded
}
