package aggregator

import (
	"context"
	"sort"
	"strings"

	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/fallback"
	"github.com/you/tokenscope/internal/fanout"
	"github.com/you/tokenscope/internal/identity"
	"github.com/you/tokenscope/internal/types"
)

func nonEmpty[T any](xs []T) bool { return len(xs) > 0 }

// SearchTokens ranks primary results for phrase across networks. Upstream
// failures shrink the result, they never surface as errors.
func (s *Service) SearchTokens(ctx context.Context, phrase string, networks []types.Network) []types.ScoredCandidate {
	phrase = normalizePhrase(phrase)
	if phrase == "" {
		return []types.ScoredCandidate{}
	}
	nets := s.networks(networks)

	return cache.Remember(ctx, s.deps.Cache, "search", searchKey(phrase, nets), s.opts.SearchTTL,
		func(ctx context.Context) ([]types.ScoredCandidate, bool) {
			chain := fallback.New("search", s.log, nonEmpty[types.ScoredCandidate],
				fallback.Step[[]types.ScoredCandidate]{
					Name: "primary_search", Source: types.SourcePrimary,
					Run: func(ctx context.Context) ([]types.ScoredCandidate, bool, error) {
						cands := s.deps.FanOut.Run(ctx, nets, fanout.Exhaustive,
							func(ctx context.Context, n types.Network) ([]types.TokenCandidate, error) {
								return s.deps.Primary.Search(ctx, phrase, n, s.opts.PerNetworkLimit)
							})
						return s.deps.Scorer.Rank(cands, phrase, s.opts.SearchLimit), true, nil
					},
				})
			out, _ := chain.Resolve(ctx)
			if out == nil {
				out = []types.ScoredCandidate{}
			}
			return out, len(out) > 0
		})
}

// ListTrending returns legitimate, liquid tokens ordered by 24h volume,
// then liquidity. limit <= 0 uses the configured default.
func (s *Service) ListTrending(ctx context.Context, networks []types.Network, limit int) []types.TokenCandidate {
	if limit <= 0 {
		limit = s.opts.TrendingLimit
	}
	nets := s.networks(networks)

	return cache.Remember(ctx, s.deps.Cache, "trending", trendingKey(nets, limit), s.opts.TrendingTTL,
		func(ctx context.Context) ([]types.TokenCandidate, bool) {
			steps := []fallback.Step[[]types.TokenCandidate]{{
				Name: "primary_trending", Source: types.SourcePrimary,
				Run: func(ctx context.Context) ([]types.TokenCandidate, bool, error) {
					cands := s.deps.FanOut.Run(ctx, nets, fanout.Exhaustive,
						func(ctx context.Context, n types.Network) ([]types.TokenCandidate, error) {
							return s.deps.Primary.Trending(ctx, n, s.opts.TrendingMinLiquidity, limit)
						})
					return s.trendingFilter(cands, limit), true, nil
				},
			}}
			if s.deps.Trending != nil {
				steps = append(steps, fallback.Step[[]types.TokenCandidate]{
					Name: "geckoterminal_trending", Source: types.SourceSecondary,
					Run: func(ctx context.Context) ([]types.TokenCandidate, bool, error) {
						cands := s.deps.FanOut.Run(ctx, nets, fanout.Exhaustive, s.deps.Trending.TrendingPools)
						return s.trendingFilter(cands, limit), true, nil
					},
				})
			}
			out, _ := fallback.New("trending", s.log, nonEmpty[types.TokenCandidate], steps...).Resolve(ctx)
			if out == nil {
				out = []types.TokenCandidate{}
			}
			return out, len(out) > 0
		})
}

func (s *Service) trendingFilter(cands []types.TokenCandidate, limit int) []types.TokenCandidate {
	uniq := identity.Dedupe(cands)
	out := make([]types.TokenCandidate, 0, len(uniq))
	for _, c := range uniq {
		if c.LiquidityUSD < s.opts.TrendingMinLiquidity || !s.deps.Scorer.Legit(c) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Volume24hUSD != out[j].Volume24hUSD {
			return out[i].Volume24hUSD > out[j].Volume24hUSD
		}
		return out[i].LiquidityUSD > out[j].LiquidityUSD
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Lookup is a cached address lookup answer.
type Lookup struct {
	Token  types.TokenCandidate `json:"token"`
	Source types.Source         `json:"source"`
}

// LookupToken finds one address. Networks where the address cannot be
// valid are skipped before any upstream call; when none remain the answer
// is empty with SourceNone.
func (s *Service) LookupToken(ctx context.Context, address string, networks []types.Network) (types.TokenCandidate, types.Source) {
	address = strings.TrimSpace(address)
	var nets []types.Network
	for _, n := range s.networks(networks) {
		if identity.Valid(address, n) {
			nets = append(nets, n)
		}
	}
	if len(nets) == 0 {
		return types.TokenCandidate{}, types.SourceNone
	}

	res := cache.Remember(ctx, s.deps.Cache, "token", tokenKey(address, nets), s.opts.TokenTTL,
		func(ctx context.Context) (Lookup, bool) {
			tok, src := s.lookupChain(address, nets).Resolve(ctx)
			return Lookup{Token: tok, Source: src}, src != types.SourceNone
		})
	return res.Token, res.Source
}

// tokenKey: канонический ключ для одной сети, иначе сырой адрес плюс набор сетей.
func tokenKey(address string, nets []types.Network) string {
	if len(nets) == 1 {
		return "token:" + identity.CanonicalKey(address, nets[0])
	}
	return "token:" + address + "@" + networksKey(nets)
}

func (s *Service) lookupChain(address string, nets []types.Network) *fallback.Chain[types.TokenCandidate] {
	usable := func(c types.TokenCandidate) bool { return c.Address != "" }
	steps := []fallback.Step[types.TokenCandidate]{{
		Name: "primary_token", Source: types.SourcePrimary,
		Run: func(ctx context.Context) (types.TokenCandidate, bool, error) {
			cands := s.deps.FanOut.Run(ctx, nets, fanout.ShortCircuit,
				func(ctx context.Context, n types.Network) ([]types.TokenCandidate, error) {
					return s.deps.Primary.TokenByAddress(ctx, address, n)
				})
			c, ok := pickAddress(cands, address)
			return c, ok, nil
		},
	}}
	if s.deps.Pairs != nil {
		steps = append(steps, fallback.Step[types.TokenCandidate]{
			Name: "dexscreener_token", Source: types.SourceTertiary,
			Run: func(ctx context.Context) (types.TokenCandidate, bool, error) {
				cands := s.deps.FanOut.Run(ctx, nets, fanout.ShortCircuit,
					func(ctx context.Context, n types.Network) ([]types.TokenCandidate, error) {
						return s.deps.Pairs.Token(ctx, address, n)
					})
				c, ok := pickAddress(cands, address)
				return c, ok, nil
			},
		})
	}
	return fallback.New("token", s.log, usable, steps...)
}

// pickAddress keeps candidates whose identity matches address and returns
// the most liquid one: a pair source lists one row per pool.
func pickAddress(cands []types.TokenCandidate, address string) (types.TokenCandidate, bool) {
	var (
		best  types.TokenCandidate
		found bool
	)
	for _, c := range cands {
		if identity.Key(c) != identity.CanonicalKey(address, c.Network) {
			continue
		}
		if !found || c.LiquidityUSD > best.LiquidityUSD {
			best, found = c, true
		}
	}
	return best, found
}
