// Package dexscreener is the tertiary provider: pair search and token
// lookup over the public DexScreener API.
package dexscreener

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/you/tokenscope/internal/connectors/httpx"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://api.dexscreener.com"
	provider   = "dexscreener"
)

var chainSlugs = map[types.Network]string{
	types.Ethereum:  "ethereum",
	types.Solana:    "solana",
	types.BSC:       "bsc",
	types.Base:      "base",
	types.Arbitrum:  "arbitrum",
	types.Polygon:   "polygon",
	types.Optimism:  "optimism",
	types.Avalanche: "avalanche",
	types.Blast:     "blast",
	types.Linea:     "linea",
	types.ZkSync:    "zksync",
	types.Fantom:    "fantom",
}

var slugChains = func() map[string]types.Network {
	m := make(map[string]types.Network, len(chainSlugs))
	for n, s := range chainSlugs {
		m[s] = n
	}
	return m
}()

// Slug returns the chainId DexScreener uses for a network.
func Slug(n types.Network) (string, bool) {
	s, ok := chainSlugs[n]
	return s, ok
}

// Network maps a DexScreener chainId back; unknown chains report false.
func Network(slug string) (types.Network, bool) {
	n, ok := slugChains[strings.ToLower(slug)]
	return n, ok
}

type Config struct {
	URL     string
	Timeout time.Duration
	RPS     float64
}

type Client struct {
	base string
	http *httpx.Client
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return &Client{
		base: strings.TrimRight(cfg.URL, "/"),
		http: httpx.New(provider, cfg.Timeout, cfg.RPS, log),
		log:  log.With(zap.String("component", "dexscreener")),
	}
}

type pairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type pair struct {
	ChainID   string      `json:"chainId"`
	DexID     string      `json:"dexId"`
	BaseToken pairToken   `json:"baseToken"`
	PriceUsd  httpx.Float `json:"priceUsd"`
	Volume    struct {
		H24 httpx.Float `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H1  httpx.Float `json:"h1"`
		H24 httpx.Float `json:"h24"`
	} `json:"priceChange"`
	Liquidity *struct {
		Usd httpx.Float `json:"usd"`
	} `json:"liquidity"`
	MarketCap httpx.Float `json:"marketCap"`
	Fdv       httpx.Float `json:"fdv"`
}

type searchResp struct {
	Pairs []pair `json:"pairs"`
}

// candidates keeps pairs on known chains, base token side only.
func candidates(pairs []pair) []types.TokenCandidate {
	out := make([]types.TokenCandidate, 0, len(pairs))
	for _, p := range pairs {
		n, ok := Network(p.ChainID)
		if !ok {
			continue
		}
		c := types.TokenCandidate{
			Network:      n,
			Address:      strings.TrimSpace(p.BaseToken.Address),
			Symbol:       strings.TrimSpace(p.BaseToken.Symbol),
			Name:         strings.TrimSpace(p.BaseToken.Name),
			PriceUSD:     p.PriceUsd.F(),
			Volume24hUSD: p.Volume.H24.F(),
			MarketCapUSD: p.MarketCap.F(),
			Change1h:     p.PriceChange.H1.F(),
			Change24h:    p.PriceChange.H24.F(),
			Provider:     provider,
		}
		if c.MarketCapUSD == 0 {
			c.MarketCapUSD = p.Fdv.F()
		}
		if p.Liquidity != nil {
			c.LiquidityUSD = p.Liquidity.Usd.F()
		}
		out = append(out, c)
	}
	return out
}

// Search runs a free-text pair search.
func (c *Client) Search(ctx context.Context, query string) ([]types.TokenCandidate, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/latest/dex/search?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, err
	}
	var resp searchResp
	if err := c.http.DoJSON(ctx, "search", req, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	return candidates(resp.Pairs), nil
}

// Token returns every pair whose base token is address on network.
func (c *Client) Token(ctx context.Context, address string, network types.Network) ([]types.TokenCandidate, error) {
	slug, ok := Slug(network)
	if !ok {
		return nil, fmt.Errorf("dexscreener: unsupported network %s", network)
	}
	u := c.base + "/tokens/v1/" + slug + "/" + url.PathEscape(strings.TrimSpace(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// /tokens/v1 отдаёт голый массив пар.
	var pairs []pair
	if err := c.http.DoJSON(ctx, "token", req, &pairs); err != nil {
		return nil, fmt.Errorf("dexscreener token: %w", err)
	}
	return candidates(pairs), nil
}
