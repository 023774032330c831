// Package identity derives the dedupe/lookup key of a token from its
// (address, network) pair.
package identity

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/you/tokenscope/internal/types"
)

// Сети, где адрес: base58 и регистр значим.
var caseSensitive = map[types.Network]bool{
	types.Solana: true,
}

// CaseSensitive reports whether addresses on the network must keep their casing.
func CaseSensitive(n types.Network) bool { return caseSensitive[n] }

// CanonicalKey returns "<network>:<address>" with the address lower-cased
// unless the network is case-sensitive. A blank address yields "".
func CanonicalKey(address string, n types.Network) string {
	a := strings.TrimSpace(address)
	if a == "" {
		return ""
	}
	if !CaseSensitive(n) {
		a = strings.ToLower(a)
	}
	return n.String() + ":" + a
}

// Key is CanonicalKey for a candidate.
func Key(c types.TokenCandidate) string { return CanonicalKey(c.Address, c.Network) }

// Dedupe keeps the first candidate for every canonical key and drops
// candidates without an address. Order is preserved.
func Dedupe(in []types.TokenCandidate) []types.TokenCandidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]types.TokenCandidate, 0, len(in))
	for _, c := range in {
		k := Key(c)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Valid checks the address format for the network family: 32-byte base58
// for case-sensitive networks, 20-byte hex otherwise.
func Valid(address string, n types.Network) bool {
	a := strings.TrimSpace(address)
	if a == "" {
		return false
	}
	if CaseSensitive(n) {
		b, err := base58.Decode(a)
		return err == nil && len(b) == 32
	}
	return common.IsHexAddress(a)
}
