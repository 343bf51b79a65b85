package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(run_id|chain|token_address). One signal per token per
// run, so the triple is unique by construction.
func ComputeSignalID(runID, chain, tokenAddress string) string {
	data := fmt.Sprintf("%s|%s|%s", runID, chain, tokenAddress)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
