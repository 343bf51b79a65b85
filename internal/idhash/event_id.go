package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// When a transaction hash is present the identity is the (chain, tx_hash)
// pair, which makes re-ingestion of the same trade a no-op. Sources
// without transaction hashes (screener, netflow aggregates) fall back to
// a content key over source, token and the observation timestamp.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(source, chain, tokenAddress, txHash string, occurredAt int64) string {
	var data string
	if txHash != "" {
		data = fmt.Sprintf("%s|%s", chain, txHash)
	} else {
		data = fmt.Sprintf("%s|%s|%s|%d", source, chain, tokenAddress, occurredAt)
	}

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
