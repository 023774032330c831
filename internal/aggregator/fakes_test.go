package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/connectors/coingecko"
	"github.com/you/tokenscope/internal/fanout"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

type fakePrimary struct {
	mu    sync.Mutex
	calls []string

	search   func(phrase string, n types.Network) ([]types.TokenCandidate, error)
	token    func(address string, n types.Network) ([]types.TokenCandidate, error)
	trending func(n types.Network) ([]types.TokenCandidate, error)
}

func (f *fakePrimary) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakePrimary) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePrimary) Search(_ context.Context, phrase string, n types.Network, _ int) ([]types.TokenCandidate, error) {
	f.record(fmt.Sprintf("search:%s:%d", phrase, n))
	if f.search == nil {
		return nil, nil
	}
	return f.search(phrase, n)
}

func (f *fakePrimary) TokenByAddress(_ context.Context, address string, n types.Network) ([]types.TokenCandidate, error) {
	f.record(fmt.Sprintf("token:%s:%d", address, n))
	if f.token == nil {
		return nil, nil
	}
	return f.token(address, n)
}

func (f *fakePrimary) Trending(_ context.Context, n types.Network, _ float64, _ int) ([]types.TokenCandidate, error) {
	f.record(fmt.Sprintf("trending:%d", n))
	if f.trending == nil {
		return nil, nil
	}
	return f.trending(n)
}

type fakePrices struct {
	mu     sync.Mutex
	n      int
	quotes map[string]coingecko.Quote
	err    error
}

func (f *fakePrices) SimplePrice(_ context.Context, ids ...string) (map[string]coingecko.Quote, error) {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]coingecko.Quote{}
	for _, id := range ids {
		if q, ok := f.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

type fakePairs struct {
	search func(q string) ([]types.TokenCandidate, error)
	token  func(address string, n types.Network) ([]types.TokenCandidate, error)
}

func (f *fakePairs) Search(_ context.Context, q string) ([]types.TokenCandidate, error) {
	if f.search == nil {
		return nil, nil
	}
	return f.search(q)
}

func (f *fakePairs) Token(_ context.Context, address string, n types.Network) ([]types.TokenCandidate, error) {
	if f.token == nil {
		return nil, nil
	}
	return f.token(address, n)
}

type fakeTrending struct {
	pools func(n types.Network) ([]types.TokenCandidate, error)
}

func (f *fakeTrending) TrendingPools(_ context.Context, n types.Network) ([]types.TokenCandidate, error) {
	return f.pools(n)
}

// legit builds a candidate that passes every hard rule.
func legit(sym, addr string, n types.Network, price float64) types.TokenCandidate {
	return types.TokenCandidate{
		Network:      n,
		Address:      addr,
		Symbol:       sym,
		Name:         sym,
		PriceUSD:     price,
		LiquidityUSD: 2e6,
		Volume24hUSD: 1e6,
		MarketCapUSD: 500e6,
		Holders:      50000,
	}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(deps Deps, opts Options) (*Service, *cache.Memory) {
	mem := cache.NewMemory()
	log := zap.NewNop()
	deps.Cache = cache.NewLoader(mem, log)
	deps.FanOut = fanout.New(4, time.Second, log)
	return New(deps, opts, log).WithClock(func() time.Time { return fixedNow }), mem
}
