package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/tokenscope/internal/types"
)

func TestSearchTokens_SurvivesOneNetworkFailing(t *testing.T) {
	broken := types.DefaultNetworks[6]
	p := &fakePrimary{search: func(phrase string, n types.Network) ([]types.TokenCandidate, error) {
		if n == broken {
			return nil, errors.New("context deadline exceeded")
		}
		return []types.TokenCandidate{legit("WIF", fmt.Sprintf("0x%040d", n), n, 1.2)}, nil
	}}
	svc, _ := newService(Deps{Primary: p}, Options{})

	got := svc.SearchTokens(context.Background(), "wif", nil)
	require.Len(t, got, 11)
	for _, c := range got {
		assert.NotEqual(t, broken, c.Network)
		assert.Equal(t, 1, c.Tier)
	}
}

func TestSearchTokens_RanksAndCaps(t *testing.T) {
	scam := legit("WIF", "0xdead", types.Ethereum, 1)
	scam.MarketCapUSD, scam.LiquidityUSD = 5e9, 50

	p := &fakePrimary{search: func(phrase string, n types.Network) ([]types.TokenCandidate, error) {
		assert.Equal(t, "dog wif", phrase)
		out := []types.TokenCandidate{scam}
		for i := range 20 {
			out = append(out, legit(fmt.Sprintf("DOGWIF%d", i), fmt.Sprintf("0x%02d", i), n, 1))
		}
		exact := legit("DOG WIF", "0xexact", n, 1)
		exact.LiquidityUSD = 20_000
		return append(out, exact), nil
	}}
	svc, _ := newService(Deps{Primary: p}, Options{Networks: []types.Network{types.Ethereum}})

	got := svc.SearchTokens(context.Background(), "  dog   wif ", nil)
	require.Len(t, got, 15)
	assert.Equal(t, "0xexact", got[0].Address, "tier beats quality")
	for _, c := range got {
		assert.NotEqual(t, "0xdead", c.Address)
	}
}

func TestSearchTokens_CacheKeyIgnoresOrderAndCase(t *testing.T) {
	p := &fakePrimary{search: func(phrase string, n types.Network) ([]types.TokenCandidate, error) {
		return []types.TokenCandidate{legit("WIF", "0x01", n, 1)}, nil
	}}
	svc, mem := newService(Deps{Primary: p}, Options{})

	nets := []types.Network{types.BSC, types.Ethereum}
	first := svc.SearchTokens(context.Background(), "WIF", nets)
	calls := len(p.Calls())

	second := svc.SearchTokens(context.Background(), " wif", []types.Network{types.Ethereum, types.BSC})
	assert.Equal(t, first, second)
	assert.Len(t, p.Calls(), calls)

	_, ok := mem.Get(context.Background(), "search:wif:1,56")
	assert.True(t, ok)
}

func TestSearchTokens_EmptyAndFailures(t *testing.T) {
	p := &fakePrimary{search: func(string, types.Network) ([]types.TokenCandidate, error) {
		return nil, errors.New("down")
	}}
	svc, mem := newService(Deps{Primary: p}, Options{Networks: []types.Network{types.Base}})

	got := svc.SearchTokens(context.Background(), "   ", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, p.Calls())

	got = svc.SearchTokens(context.Background(), "pepe", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, mem.Len(), "empty answers are not pinned")
}

func TestListTrending_FiltersAndOrders(t *testing.T) {
	thin := legit("THIN", "0x01", types.Base, 1)
	thin.LiquidityUSD = 5_000
	spam := legit("FREEAIRDROP", "0x02", types.Base, 1)
	spam.Volume24hUSD = 9e9
	high := legit("HIGH", "0x03", types.Base, 1)
	high.Volume24hUSD = 5e6
	tieA := legit("TIEA", "0x04", types.Base, 1)
	tieA.LiquidityUSD = 1e6
	tieB := legit("TIEB", "0x05", types.Base, 1)
	tieB.LiquidityUSD = 3e6

	p := &fakePrimary{trending: func(n types.Network) ([]types.TokenCandidate, error) {
		return []types.TokenCandidate{thin, spam, tieA, high, tieB, high}, nil
	}}
	svc, mem := newService(Deps{Primary: p}, Options{Networks: []types.Network{types.Base}})

	got := svc.ListTrending(context.Background(), nil, 0)
	var syms []string
	for _, c := range got {
		syms = append(syms, c.Symbol)
	}
	assert.Equal(t, []string{"HIGH", "TIEB", "TIEA"}, syms)

	_, ok := mem.Get(context.Background(), "trending:8453:20")
	assert.True(t, ok)

	limited := svc.ListTrending(context.Background(), nil, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "HIGH", limited[0].Symbol)
}

func TestListTrending_FallsBackToSecondary(t *testing.T) {
	p := &fakePrimary{trending: func(types.Network) ([]types.TokenCandidate, error) {
		return nil, errors.New("codex: graphql: rate limit")
	}}
	gt := &fakeTrending{pools: func(n types.Network) ([]types.TokenCandidate, error) {
		return []types.TokenCandidate{legit("POOL", "0xpool", n, 2)}, nil
	}}
	svc, _ := newService(Deps{Primary: p, Trending: gt}, Options{Networks: []types.Network{types.Arbitrum, types.Base}})

	got := svc.ListTrending(context.Background(), nil, 5)
	require.Len(t, got, 2)
	assert.Equal(t, types.Arbitrum, got[0].Network)
}

func TestListTrending_NothingAnywhere(t *testing.T) {
	gt := &fakeTrending{pools: func(types.Network) ([]types.TokenCandidate, error) { return nil, nil }}
	svc, mem := newService(Deps{Primary: &fakePrimary{}, Trending: gt}, Options{Networks: []types.Network{types.Base}})

	got := svc.ListTrending(context.Background(), nil, 0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, mem.Len())
}

const pepeAddr = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"

func TestLookupToken_PrimaryMatchesCaseInsensitively(t *testing.T) {
	p := &fakePrimary{token: func(addr string, n types.Network) ([]types.TokenCandidate, error) {
		return []types.TokenCandidate{legit("PEPE", strings.ToLower(addr), n, 0.00001)}, nil
	}}
	svc, mem := newService(Deps{Primary: p}, Options{})

	tok, src := svc.LookupToken(context.Background(), pepeAddr, []types.Network{types.Ethereum, types.Solana})
	assert.Equal(t, types.SourcePrimary, src)
	assert.Equal(t, "PEPE", tok.Symbol)
	assert.Equal(t, []string{"token:" + pepeAddr + ":1"}, p.Calls(), "solana cannot hold a hex address")

	_, ok := mem.Get(context.Background(), "token:1:"+strings.ToLower(pepeAddr))
	assert.True(t, ok)
}

func TestLookupToken_FallsBackToPairs(t *testing.T) {
	pairs := &fakePairs{token: func(addr string, n types.Network) ([]types.TokenCandidate, error) {
		small := legit("PEPE", addr, n, 0.00001)
		small.LiquidityUSD = 10_000
		other := legit("WETH", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", n, 3000)
		other.LiquidityUSD = 9e9
		return []types.TokenCandidate{small, legit("PEPE", addr, n, 0.00002), other}, nil
	}}
	svc, _ := newService(Deps{Primary: &fakePrimary{}, Pairs: pairs}, Options{})

	tok, src := svc.LookupToken(context.Background(), pepeAddr, []types.Network{types.Ethereum})
	assert.Equal(t, types.SourceTertiary, src)
	assert.Equal(t, 0.00002, tok.PriceUSD, "most liquid pool of the same token")
}

func TestLookupToken_InvalidOrMissing(t *testing.T) {
	p := &fakePrimary{}
	svc, mem := newService(Deps{Primary: p}, Options{})

	tok, src := svc.LookupToken(context.Background(), "not-an-address", nil)
	assert.Equal(t, types.SourceNone, src)
	assert.Empty(t, tok.Address)
	assert.Empty(t, p.Calls())

	_, src = svc.LookupToken(context.Background(), pepeAddr, []types.Network{types.Ethereum})
	assert.Equal(t, types.SourceNone, src)
	assert.Zero(t, mem.Len())
}

func TestNetworksKey(t *testing.T) {
	assert.Equal(t, "1,56,8453", networksKey([]types.Network{types.Base, types.Ethereum, types.BSC, types.Ethereum}))
	assert.Equal(t, "", networksKey(nil))
}
