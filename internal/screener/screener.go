// Package screener decides which candidates are legitimate and in what
// order a phrase search returns them.
package screener

import (
	"sort"

	"github.com/you/tokenscope/internal/identity"
	"github.com/you/tokenscope/internal/types"
)

// Rank dedupes, scores, filters and orders candidates for a phrase.
// Order is tier ascending, then quality descending. limit <= 0 keeps all.
func (s *Scorer) Rank(cands []types.TokenCandidate, phrase string, limit int) []types.ScoredCandidate {
	uniq := identity.Dedupe(cands)
	out := make([]types.ScoredCandidate, 0, len(uniq))
	for _, c := range uniq {
		q := s.Score(c, phrase)
		if !Accept(q) {
			continue
		}
		out = append(out, types.ScoredCandidate{TokenCandidate: c, Quality: q, Tier: Tier(c, phrase)})
	}
	Sort(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Rank uses the default rules.
func Rank(cands []types.TokenCandidate, phrase string, limit int) []types.ScoredCandidate {
	return defaultScorer.Rank(cands, phrase, limit)
}

// Sort orders by tier ascending, then quality descending. Stable, so equal
// candidates keep provider order.
func Sort(xs []types.ScoredCandidate) {
	sort.SliceStable(xs, func(i, j int) bool {
		if xs[i].Tier != xs[j].Tier {
			return xs[i].Tier < xs[j].Tier
		}
		return xs[i].Quality > xs[j].Quality
	})
}

// BestExact picks the highest PriceScore candidate whose symbol exactly
// matches. ok is false when nothing legitimate matches.
func (s *Scorer) BestExact(cands []types.TokenCandidate, symbol string) (types.TokenCandidate, bool) {
	var (
		best      types.TokenCandidate
		bestScore float64
		found     bool
	)
	for _, c := range cands {
		if !ExactSymbol(c, symbol) || c.PriceUSD <= 0 {
			continue
		}
		sc := s.PriceScore(c)
		if sc < 0 { // -Inf: дисквалифицирован
			continue
		}
		if !found || sc > bestScore {
			best, bestScore, found = c, sc, true
		}
	}
	return best, found
}

// Legit reports whether the candidate passes every hard rule.
func (s *Scorer) Legit(c types.TokenCandidate) bool {
	_, bad := s.Disqualify(c)
	return !bad
}
