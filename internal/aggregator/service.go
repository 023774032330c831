// Package aggregator is the single entry point over providers, ranking and
// the cache. The HTTP API and the CLI both call it.
package aggregator

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/connectors/coingecko"
	"github.com/you/tokenscope/internal/fanout"
	"github.com/you/tokenscope/internal/screener"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

// Primary is the structured-query provider.
type Primary interface {
	Search(ctx context.Context, phrase string, network types.Network, limit int) ([]types.TokenCandidate, error)
	TokenByAddress(ctx context.Context, address string, network types.Network) ([]types.TokenCandidate, error)
	Trending(ctx context.Context, network types.Network, minLiquidity float64, limit int) ([]types.TokenCandidate, error)
}

// PriceFeed is the secondary price source, keyed by provider coin id.
type PriceFeed interface {
	SimplePrice(ctx context.Context, ids ...string) (map[string]coingecko.Quote, error)
}

// PairSearch is the tertiary pair-level source.
type PairSearch interface {
	Search(ctx context.Context, query string) ([]types.TokenCandidate, error)
	Token(ctx context.Context, address string, network types.Network) ([]types.TokenCandidate, error)
}

type TrendingFeed interface {
	TrendingPools(ctx context.Context, network types.Network) ([]types.TokenCandidate, error)
}

// Deps wires the facade. Only Primary is required; a nil secondary source
// drops its step from every chain.
type Deps struct {
	Primary  Primary
	Prices   PriceFeed
	Pairs    PairSearch
	Trending TrendingFeed
	Cache    *cache.Loader
	FanOut   *fanout.Coordinator
	Scorer   *screener.Scorer
}

// Override pins a symbol to one known contract.
type Override struct {
	Network types.Network `yaml:"network"`
	Address string        `yaml:"address"`
}

// DefaultOverrides covers majors whose symbol search is full of impostors.
func DefaultOverrides() map[string]Override {
	return map[string]Override{
		"BTC": {Network: types.Ethereum, Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"},
		"ETH": {Network: types.Ethereum, Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"},
		"SOL": {Network: types.Solana, Address: "So11111111111111111111111111111111111111112"},
		"BNB": {Network: types.BSC, Address: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"},
	}
}

type Options struct {
	Networks             []types.Network
	SearchLimit          int
	PerNetworkLimit      int
	TrendingLimit        int
	TrendingMinLiquidity float64
	PriceConcurrency     int

	PriceTTL    time.Duration
	SearchTTL   time.Duration
	TokenTTL    time.Duration
	TrendingTTL time.Duration

	Overrides    map[string]Override // ключ: символ в верхнем регистре
	CoinGeckoIDs map[string]string
}

func DefaultOptions() Options {
	return Options{
		Networks:             slices.Clone(types.DefaultNetworks),
		SearchLimit:          15,
		PerNetworkLimit:      25,
		TrendingLimit:        20,
		TrendingMinLiquidity: 10_000,
		PriceConcurrency:     4,
		PriceTTL:             15 * time.Second,
		SearchTTL:            20 * time.Second,
		TokenTTL:             60 * time.Second,
		TrendingTTL:          5 * time.Minute,
		Overrides:            DefaultOverrides(),
		CoinGeckoIDs:         coingecko.DefaultIDs,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Networks) == 0 {
		o.Networks = d.Networks
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = d.SearchLimit
	}
	if o.PerNetworkLimit <= 0 {
		o.PerNetworkLimit = d.PerNetworkLimit
	}
	if o.TrendingLimit <= 0 {
		o.TrendingLimit = d.TrendingLimit
	}
	if o.TrendingMinLiquidity <= 0 {
		o.TrendingMinLiquidity = d.TrendingMinLiquidity
	}
	if o.PriceConcurrency <= 0 {
		o.PriceConcurrency = d.PriceConcurrency
	}
	if o.PriceTTL <= 0 {
		o.PriceTTL = d.PriceTTL
	}
	if o.SearchTTL <= 0 {
		o.SearchTTL = d.SearchTTL
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = d.TokenTTL
	}
	if o.TrendingTTL <= 0 {
		o.TrendingTTL = d.TrendingTTL
	}
	if o.Overrides == nil {
		o.Overrides = d.Overrides
	}
	if o.CoinGeckoIDs == nil {
		o.CoinGeckoIDs = d.CoinGeckoIDs
	}
	return o
}

type Service struct {
	deps Deps
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

func New(deps Deps, opts Options, log *zap.Logger) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.NewLoader(cache.NewMemory(), log)
	}
	if deps.FanOut == nil {
		deps.FanOut = fanout.New(0, 0, log)
	}
	if deps.Scorer == nil {
		deps.Scorer = screener.NewScorer(screener.DefaultRules())
	}
	return &Service{
		deps: deps,
		opts: opts.withDefaults(),
		log:  log.With(zap.String("component", "aggregator")),
		now:  time.Now,
	}
}

// WithClock overrides the timestamp source for price records.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Options() Options { return s.opts }

func (s *Service) networks(nets []types.Network) []types.Network {
	if len(nets) == 0 {
		return s.opts.Networks
	}
	return nets
}

// networksKey is order-insensitive: the same set always maps to one key.
func networksKey(nets []types.Network) string {
	sorted := slices.Clone(nets)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.FormatInt(int64(n), 10)
	}
	return strings.Join(parts, ",")
}

// normalizePhrase trims and collapses inner whitespace.
func normalizePhrase(p string) string { return strings.Join(strings.Fields(p), " ") }

// normalizeSymbol: "$btc " → "BTC".
func normalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ToUpper(strings.TrimSpace(s))
}

func searchKey(phrase string, nets []types.Network) string {
	return "search:" + strings.ToLower(phrase) + ":" + networksKey(nets)
}

func priceKey(symbol string) string { return "price:" + symbol }

func pricesKey(symbols []string) string { return "prices:" + strings.Join(symbols, ",") }

func trendingKey(nets []types.Network, limit int) string {
	return "trending:" + networksKey(nets) + ":" + strconv.Itoa(limit)
}
