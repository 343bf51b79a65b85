package normalize

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// validSolanaAddress reports whether addr is a well-formed base58
// 32-byte ed25519 curve point. Wallet addresses are keypair public keys
// and sit on the curve; malformed or truncated strings fail the decode.
func validSolanaAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// validHexAddress reports whether addr is a 0x-prefixed 20-byte hex address.
func validHexAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	for _, c := range addr[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// validAddress applies the chain-appropriate address check.
func validAddress(chain, addr string) bool {
	switch chain {
	case "solana":
		return validSolanaAddress(addr)
	default:
		return validHexAddress(addr)
	}
}
