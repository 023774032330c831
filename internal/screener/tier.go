package screener

import (
	"strings"
	"unicode"

	"github.com/you/tokenscope/internal/types"
)

// Match tiers, lower is more relevant.
const (
	TierExactSymbol = iota + 1
	TierExactName
	TierSymbolPrefix
	TierNamePrefix
	TierSymbolContains
	TierNameContains
	TierNoMatch
)

// normalize strips whitespace, a leading "$" and case: "$ Wif" → "wif".
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "$")
	return strings.ToLower(s)
}

// Tier buckets the lexical relationship between phrase and candidate.
// First matching rule wins.
func Tier(c types.TokenCandidate, phrase string) int {
	q := normalize(phrase)
	if q == "" {
		return TierNoMatch
	}
	sym, name := normalize(c.Symbol), normalize(c.Name)

	switch {
	case sym != "" && sym == q:
		return TierExactSymbol
	case name != "" && name == q:
		return TierExactName
	case strings.HasPrefix(sym, q):
		return TierSymbolPrefix
	case strings.HasPrefix(name, q):
		return TierNamePrefix
	case strings.Contains(sym, q):
		return TierSymbolContains
	case strings.Contains(name, q):
		return TierNameContains
	}
	return TierNoMatch
}

// ExactSymbol reports a tier-1 match.
func ExactSymbol(c types.TokenCandidate, symbol string) bool {
	return Tier(c, symbol) == TierExactSymbol
}
