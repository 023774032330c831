package screener

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/tokenscope/internal/types"
)

func wif() types.TokenCandidate {
	return types.TokenCandidate{
		Network:      types.Solana,
		Address:      "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
		Symbol:       "WIF",
		Name:         "dogwifhat",
		MarketCapUSD: 500e6,
		LiquidityUSD: 2e6,
		Volume24hUSD: 1e6,
		Holders:      50_000,
		PriceUSD:     1.2,
	}
}

func TestScore_ScenarioA(t *testing.T) {
	c := wif()
	s := Score(c, "wif")
	assert.True(t, Accept(s))
	// 50 + 40 (liq) + 25 (vol) + 0 (ratio 250x) + 15 (holders) + 5 (price) + 100 (exact)
	assert.Equal(t, 235, s)
	assert.Equal(t, TierExactSymbol, Tier(c, "wif"))
}

func TestScore_ScenarioB(t *testing.T) {
	c := types.TokenCandidate{Symbol: "SCAMTOKEN", MarketCapUSD: 5e9, LiquidityUSD: 50}
	assert.Equal(t, RuleBigCapThin, DefaultRules().Check(c))
	for _, phrase := range []string{"", "scam", "SCAMTOKEN", "x"} {
		assert.Equal(t, Disqualified, Score(c, phrase))
		assert.False(t, Accept(Score(c, phrase)))
	}
}

func TestScore_CapCeilingIsAbsolute(t *testing.T) {
	base := wif()
	variants := []types.TokenCandidate{base, base, base, base}
	variants[0].MarketCapUSD = 1.0001e12
	variants[1].MarketCapUSD, variants[1].LiquidityUSD = 5e12, 1e12
	variants[2].MarketCapUSD, variants[2].Holders, variants[2].Volume24hUSD = 2e12, 10_000_000, 1e12
	variants[3].MarketCapUSD, variants[3].Symbol = 9e15, "BTC"

	for _, c := range variants {
		s := Score(c, c.Symbol)
		assert.Equal(t, Disqualified, s)
		assert.LessOrEqual(t, s, RejectThreshold)
	}
}

func TestRules_OrderAndCoverage(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		name string
		c    types.TokenCandidate
		want string
	}{
		{"ceiling", types.TokenCandidate{MarketCapUSD: 2e12, LiquidityUSD: 10}, RuleCapCeiling},
		{"huge thin", types.TokenCandidate{MarketCapUSD: 200e9, LiquidityUSD: 500}, RuleHugeCapThin},
		{"big thin", types.TokenCandidate{MarketCapUSD: 2e9, LiquidityUSD: 99}, RuleBigCapThin},
		{"illiquid", types.TokenCandidate{MarketCapUSD: 1e6, LiquidityUSD: 999}, RuleIlliquid},
		{"dust", types.TokenCandidate{MarketCapUSD: 500, LiquidityUSD: 4000}, RuleDust},
		{"missing cap counts as zero", types.TokenCandidate{LiquidityUSD: 4999}, RuleDust},
		{"fake depth", types.TokenCandidate{MarketCapUSD: 2000, LiquidityUSD: 200_000}, RuleFakeDepth},
		{"spam", types.TokenCandidate{Symbol: "FreeAirdrop", MarketCapUSD: 1e6, LiquidityUSD: 1e5}, RuleSpamKeywords},
		{"spam url", types.TokenCandidate{Symbol: "PEPE.COM", MarketCapUSD: 1e6, LiquidityUSD: 1e5}, RuleSpamKeywords},
		{"clean", types.TokenCandidate{Symbol: "PEPE", MarketCapUSD: 1e6, LiquidityUSD: 1e5}, ""},
		{"no cap, deep pool", types.TokenCandidate{Symbol: "NEW", LiquidityUSD: 10_000}, ""},
		{"no cap skips depth ratio", types.TokenCandidate{Symbol: "NEW", LiquidityUSD: 1e6}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Check(tc.c))
		})
	}
}

func TestScore_RatioPenaltiesAndRejectThreshold(t *testing.T) {
	c := types.TokenCandidate{Symbol: "THIN", LiquidityUSD: 1_000, MarketCapUSD: 20e6}
	// 50 + 5 (liq) - 40 (ratio 20000x) = 15
	assert.Equal(t, 15, Score(c, ""))
	assert.False(t, Accept(Score(c, "")), "low quality is rejected but not disqualified")
	assert.NotEqual(t, Disqualified, Score(c, ""))

	c.MarketCapUSD = 6e6 // 6000x
	assert.Equal(t, 35, Score(c, ""))
	assert.True(t, Accept(Score(c, "")))
}

func TestScore_RelevanceBonus(t *testing.T) {
	c := types.TokenCandidate{Symbol: "BONK", Name: "Bonk", LiquidityUSD: 10_000, MarketCapUSD: 100_000}
	base := Score(c, "")
	assert.Equal(t, base+100, Score(c, "$bonk"))
	assert.Equal(t, base+100, Score(c, " BONK "))
	assert.Equal(t, base+40, Score(c, "bon"))
	assert.Equal(t, base+15, Score(c, "onk"))
	assert.Equal(t, base, Score(c, "zzz"))
}

func TestScorer_CustomRules(t *testing.T) {
	s := NewScorer(Rules{MinLiquidity: 50_000})
	c := types.TokenCandidate{Symbol: "MID", LiquidityUSD: 20_000, MarketCapUSD: 1e6}
	assert.Equal(t, Disqualified, s.Score(c, ""))
	assert.NotEqual(t, Disqualified, Score(c, ""))
	assert.Equal(t, DefaultRules().SpamKeywords, s.Rules.SpamKeywords)
}

func TestPriceScore(t *testing.T) {
	s := NewScorer(DefaultRules())
	deep := wif()
	shallow := wif()
	shallow.LiquidityUSD, shallow.Volume24hUSD, shallow.Holders = 20_000, 5_000, 300

	assert.Greater(t, s.PriceScore(deep), s.PriceScore(shallow))
	assert.True(t, math.IsInf(s.PriceScore(types.TokenCandidate{MarketCapUSD: 2e12}), -1))
}

func TestBestExact(t *testing.T) {
	s := NewScorer(DefaultRules())
	genuine := wif()
	clone := wif()
	clone.Address, clone.LiquidityUSD, clone.Holders = "Clone1111111111111111111111111111111111111", 30_000, 10
	fake := wif()
	fake.Address, fake.MarketCapUSD, fake.LiquidityUSD = "Fake11111111111111111111111111111111111111", 5e9, 50
	other := wif()
	other.Symbol = "WIFE"

	best, ok := s.BestExact([]types.TokenCandidate{clone, fake, other, genuine}, "$WIF")
	require.True(t, ok)
	assert.Equal(t, genuine.Address, best.Address)

	_, ok = s.BestExact([]types.TokenCandidate{fake, other}, "WIF")
	assert.False(t, ok)

	zeroPrice := wif()
	zeroPrice.PriceUSD = 0
	_, ok = s.BestExact([]types.TokenCandidate{zeroPrice}, "WIF")
	assert.False(t, ok)
}
