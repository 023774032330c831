package aggregator

import (
	"context"
	"slices"

	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/fallback"
	"github.com/you/tokenscope/internal/fanout"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResolvePrice never fails. A record with PriceUSD 0 and SourceNone means
// every provider came back empty; such records are not cached.
func (s *Service) ResolvePrice(ctx context.Context, symbol string) types.PriceRecord {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return types.PriceRecord{Source: types.SourceNone}
	}
	return cache.Remember(ctx, s.deps.Cache, "price", priceKey(sym), s.opts.PriceTTL,
		func(ctx context.Context) (types.PriceRecord, bool) {
			rec, src := s.priceChain(sym).Resolve(ctx)
			rec.Symbol = sym
			rec.Source = src
			rec.UpdatedAt = s.now().UTC()
			return rec, rec.Found()
		})
}

func (s *Service) priceChain(sym string) *fallback.Chain[types.PriceRecord] {
	steps := make([]fallback.Step[types.PriceRecord], 0, 4)
	if ov, ok := s.opts.Overrides[sym]; ok {
		steps = append(steps, fallback.Step[types.PriceRecord]{
			Name: "override", Source: types.SourcePrimary,
			Run: func(ctx context.Context) (types.PriceRecord, bool, error) { return s.priceOverride(ctx, ov) },
		})
	}
	steps = append(steps, fallback.Step[types.PriceRecord]{
		Name: "exact_search", Source: types.SourcePrimary,
		Run: func(ctx context.Context) (types.PriceRecord, bool, error) { return s.priceExactSearch(ctx, sym) },
	})
	// без id в таблице шаг просто не участвует
	if id, ok := s.opts.CoinGeckoIDs[sym]; ok && s.deps.Prices != nil {
		steps = append(steps, fallback.Step[types.PriceRecord]{
			Name: "coingecko", Source: types.SourceSecondary,
			Run: func(ctx context.Context) (types.PriceRecord, bool, error) { return s.priceCoinGecko(ctx, id) },
		})
	}
	if s.deps.Pairs != nil {
		steps = append(steps, fallback.Step[types.PriceRecord]{
			Name: "dexscreener", Source: types.SourceTertiary,
			Run: func(ctx context.Context) (types.PriceRecord, bool, error) { return s.pricePairSearch(ctx, sym) },
		})
	}
	return fallback.New("price", s.log, types.PriceRecord.Found, steps...)
}

func fromCandidate(c types.TokenCandidate) types.PriceRecord {
	return types.PriceRecord{
		PriceUSD:  c.PriceUSD,
		Change24h: c.Change24h,
		Network:   c.Network,
		Address:   c.Address,
	}
}

// priceOverride queries the pinned contract directly.
func (s *Service) priceOverride(ctx context.Context, ov Override) (types.PriceRecord, bool, error) {
	cands, err := s.deps.Primary.TokenByAddress(ctx, ov.Address, ov.Network)
	if err != nil {
		return types.PriceRecord{}, false, err
	}
	for _, c := range cands {
		if c.PriceUSD > 0 {
			return fromCandidate(c), true, nil
		}
	}
	return types.PriceRecord{}, false, nil
}

func (s *Service) priceExactSearch(ctx context.Context, sym string) (types.PriceRecord, bool, error) {
	cands := s.deps.FanOut.Run(ctx, s.opts.Networks, fanout.Exhaustive,
		func(ctx context.Context, n types.Network) ([]types.TokenCandidate, error) {
			return s.deps.Primary.Search(ctx, sym, n, s.opts.PerNetworkLimit)
		})
	best, ok := s.deps.Scorer.BestExact(cands, sym)
	if !ok {
		return types.PriceRecord{}, false, nil
	}
	return fromCandidate(best), true, nil
}

func (s *Service) priceCoinGecko(ctx context.Context, id string) (types.PriceRecord, bool, error) {
	quotes, err := s.deps.Prices.SimplePrice(ctx, id)
	if err != nil {
		return types.PriceRecord{}, false, err
	}
	q, ok := quotes[id]
	if !ok {
		return types.PriceRecord{}, false, nil
	}
	return types.PriceRecord{PriceUSD: q.PriceUSD, Change24h: q.Change24h}, true, nil
}

func (s *Service) pricePairSearch(ctx context.Context, sym string) (types.PriceRecord, bool, error) {
	cands, err := s.deps.Pairs.Search(ctx, sym)
	if err != nil {
		return types.PriceRecord{}, false, err
	}
	best, ok := s.deps.Scorer.BestExact(cands, sym)
	if !ok {
		return types.PriceRecord{}, false, nil
	}
	return fromCandidate(best), true, nil
}

// ResolvePrices resolves many symbols at once. Every requested symbol is a
// key in the result, found or not. The batch is cached only when every
// symbol was found.
func (s *Service) ResolvePrices(ctx context.Context, symbols []string) map[string]types.PriceRecord {
	uniq := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if n := normalizeSymbol(sym); n != "" {
			uniq = append(uniq, n)
		}
	}
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	if len(uniq) == 0 {
		return map[string]types.PriceRecord{}
	}

	return cache.Remember(ctx, s.deps.Cache, "prices", pricesKey(uniq), s.opts.PriceTTL,
		func(ctx context.Context) (map[string]types.PriceRecord, bool) {
			recs := make([]types.PriceRecord, len(uniq))
			var g errgroup.Group
			g.SetLimit(s.opts.PriceConcurrency)
			for i, sym := range uniq {
				g.Go(func() error {
					recs[i] = s.ResolvePrice(ctx, sym)
					return nil
				})
			}
			_ = g.Wait()

			out := make(map[string]types.PriceRecord, len(uniq))
			all := true
			for i, sym := range uniq {
				if !recs[i].Found() {
					all = false
					recs[i].Symbol = sym
				}
				out[sym] = recs[i]
			}
			s.log.Debug("prices resolved", zap.Int("symbols", len(uniq)), zap.Bool("complete", all))
			return out, all
		})
}
