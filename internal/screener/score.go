package screener

import (
	"math"
	"strings"

	imetrics "github.com/you/tokenscope/internal/metrics"
	"github.com/you/tokenscope/internal/types"
)

const (
	// Disqualified is returned for candidates that hit a hard rule.
	Disqualified = -1000
	// RejectThreshold: scores at or below it never reach a result set.
	RejectThreshold = 20
)

// Rules holds the empirically tuned disqualification thresholds. They catch
// specific historical scam patterns and are kept as configuration.
type Rules struct {
	MaxMarketCap        float64  `yaml:"max_market_cap"`         // 1e12
	HugeCap             float64  `yaml:"huge_cap"`               // 100e9
	HugeCapMinLiquidity float64  `yaml:"huge_cap_min_liquidity"` // 1000
	BigCap              float64  `yaml:"big_cap"`                // 1e9
	BigCapMinLiquidity  float64  `yaml:"big_cap_min_liquidity"`  // 100
	MinLiquidity        float64  `yaml:"min_liquidity"`          // 1000
	DustCap             float64  `yaml:"dust_cap"`               // 1000
	DustCapMinLiquidity float64  `yaml:"dust_cap_min_liquidity"` // 5000
	MaxLiquidityToCap   float64  `yaml:"max_liquidity_to_cap"`   // 50
	SpamKeywords        []string `yaml:"spam_keywords"`
}

func DefaultRules() Rules {
	return Rules{
		MaxMarketCap:        1e12,
		HugeCap:             100e9,
		HugeCapMinLiquidity: 1000,
		BigCap:              1e9,
		BigCapMinLiquidity:  100,
		MinLiquidity:        1000,
		DustCap:             1000,
		DustCapMinLiquidity: 5000,
		MaxLiquidityToCap:   50,
		SpamKeywords: []string{
			"scam", "test", "fake", "rug", "honeypot", "airdrop",
			"claim", "reward", "visit", "http", "www.", ".com", ".io", ".xyz",
		},
	}
}

// WithDefaults fills zero fields from DefaultRules.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	set := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	set(&r.MaxMarketCap, d.MaxMarketCap)
	set(&r.HugeCap, d.HugeCap)
	set(&r.HugeCapMinLiquidity, d.HugeCapMinLiquidity)
	set(&r.BigCap, d.BigCap)
	set(&r.BigCapMinLiquidity, d.BigCapMinLiquidity)
	set(&r.MinLiquidity, d.MinLiquidity)
	set(&r.DustCap, d.DustCap)
	set(&r.DustCapMinLiquidity, d.DustCapMinLiquidity)
	set(&r.MaxLiquidityToCap, d.MaxLiquidityToCap)
	if len(r.SpamKeywords) == 0 {
		r.SpamKeywords = d.SpamKeywords
	}
	return r
}

// Rule names, also used as metric labels.
const (
	RuleCapCeiling   = "cap_ceiling"
	RuleHugeCapThin  = "huge_cap_thin_liquidity"
	RuleBigCapThin   = "big_cap_thin_liquidity"
	RuleIlliquid     = "illiquid"
	RuleDust         = "dust"
	RuleFakeDepth    = "liquidity_exceeds_cap"
	RuleSpamKeywords = "spam_keyword"
)

// Check returns the first hard rule the candidate breaks, or "".
// Order matters: rules are evaluated exactly as listed.
func (r Rules) Check(c types.TokenCandidate) string {
	mc, liq := c.MarketCapUSD, c.LiquidityUSD
	switch {
	case mc > r.MaxMarketCap:
		return RuleCapCeiling
	case mc > r.HugeCap && liq < r.HugeCapMinLiquidity:
		return RuleHugeCapThin
	case mc > r.BigCap && liq < r.BigCapMinLiquidity:
		return RuleBigCapThin
	case liq < r.MinLiquidity:
		return RuleIlliquid
	case mc < r.DustCap && liq < r.DustCapMinLiquidity:
		return RuleDust
	// без капитализации соотношение не считаем
	case mc > 0 && liq/mc > r.MaxLiquidityToCap:
		return RuleFakeDepth
	}
	sym := strings.ToLower(c.Symbol)
	for _, kw := range r.SpamKeywords {
		if kw != "" && strings.Contains(sym, strings.ToLower(kw)) {
			return RuleSpamKeywords
		}
	}
	return ""
}

// Scorer computes quality scores under a rule set.
type Scorer struct {
	Rules Rules
}

func NewScorer(r Rules) *Scorer { return &Scorer{Rules: r.WithDefaults()} }

var defaultScorer = NewScorer(DefaultRules())

// Score computes the quality score with the default rules.
func Score(c types.TokenCandidate, phrase string) int { return defaultScorer.Score(c, phrase) }

// Accept reports whether a score survives the reject threshold.
func Accept(score int) bool { return score > RejectThreshold }

func (s *Scorer) Disqualify(c types.TokenCandidate) (string, bool) {
	rule := s.Rules.Check(c)
	if rule == "" {
		return "", false
	}
	imetrics.Disqualified.WithLabelValues(rule).Inc()
	return rule, true
}

func (s *Scorer) Score(c types.TokenCandidate, phrase string) int {
	if _, bad := s.Disqualify(c); bad {
		return Disqualified
	}

	score := 50
	liq, vol, mc := c.LiquidityUSD, c.Volume24hUSD, c.MarketCapUSD

	switch {
	case liq >= 1_000_000:
		score += 40
	case liq >= 250_000:
		score += 30
	case liq >= 50_000:
		score += 20
	case liq >= 10_000:
		score += 10
	case liq >= 1_000:
		score += 5
	}

	switch {
	case vol >= 1_000_000:
		score += 25
	case vol >= 100_000:
		score += 15
	case vol >= 10_000:
		score += 8
	case vol >= 1_000:
		score += 3
	}

	if mc > 0 && liq > 0 {
		ratio := mc / liq
		switch {
		case ratio < 50:
			score += 15
		case ratio < 200:
			score += 5
		case ratio > 10_000:
			score -= 40
		case ratio > 5_000:
			score -= 20
		}
	}

	switch {
	case c.Holders >= 10_000:
		score += 15
	case c.Holders >= 1_000:
		score += 8
	case c.Holders >= 100:
		score += 3
	}

	if c.PriceUSD > 0 {
		score += 5
	}

	return score + relevanceBonus(c, phrase)
}

func relevanceBonus(c types.TokenCandidate, phrase string) int {
	q := normalize(phrase)
	if q == "" {
		return 0
	}
	sym, name := normalize(c.Symbol), normalize(c.Name)
	switch {
	case sym == q || name == q:
		return 100
	case strings.HasPrefix(sym, q) || strings.HasPrefix(name, q):
		return 40
	case strings.Contains(sym, q) || strings.Contains(name, q):
		return 15
	}
	return 0
}

// PriceScore is the continuous score used to pick among exact-symbol
// matches for a price. Disqualified candidates score -Inf.
func (s *Scorer) PriceScore(c types.TokenCandidate) float64 {
	if _, bad := s.Disqualify(c); bad {
		return math.Inf(-1)
	}
	return 3*math.Log10(1+c.LiquidityUSD) +
		2*math.Log10(1+c.Volume24hUSD) +
		math.Log10(1+float64(max(c.Holders, 0)))
}
