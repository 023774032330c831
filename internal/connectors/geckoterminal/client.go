// Package geckoterminal is the fallback trending feed.
package geckoterminal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/you/tokenscope/internal/connectors/httpx"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://api.geckoterminal.com/api/v2"
	provider   = "geckoterminal"
)

var networkSlugs = map[types.Network]string{
	types.Ethereum:  "eth",
	types.Solana:    "solana",
	types.BSC:       "bsc",
	types.Base:      "base",
	types.Arbitrum:  "arbitrum",
	types.Polygon:   "polygon_pos",
	types.Optimism:  "optimism",
	types.Avalanche: "avax",
	types.Blast:     "blast",
	types.Linea:     "linea",
	types.ZkSync:    "zksync",
	types.Fantom:    "ftm",
}

func Slug(n types.Network) (string, bool) {
	s, ok := networkSlugs[n]
	return s, ok
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
		log:  log.With(zap.String("component", "geckoterminal")),
	}
}

type poolAttributes struct {
	Name              string      `json:"name"`
	Address           string      `json:"address"`
	BaseTokenPriceUSD httpx.Float `json:"base_token_price_usd"`
	ReserveInUSD      httpx.Float `json:"reserve_in_usd"`
	FdvUSD            httpx.Float `json:"fdv_usd"`
	MarketCapUSD      httpx.Float `json:"market_cap_usd"`
	VolumeUSD         struct {
		H24 httpx.Float `json:"h24"`
	} `json:"volume_usd"`
	PriceChange struct {
		H1  httpx.Float `json:"h1"`
		H24 httpx.Float `json:"h24"`
	} `json:"price_change_percentage"`
}

type relation struct {
	Data *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type pool struct {
	ID            string         `json:"id"`
	Attributes    poolAttributes `json:"attributes"`
	Relationships struct {
		BaseToken relation `json:"base_token"`
	} `json:"relationships"`
}

type poolsResp struct {
	Data []pool `json:"data"`
}

// TrendingPools returns the base token of each trending pool on network.
func (c *Client) TrendingPools(ctx context.Context, network types.Network) ([]types.TokenCandidate, error) {
	slug, ok := Slug(network)
	if !ok {
		return nil, fmt.Errorf("geckoterminal: unsupported network %s", network)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/networks/"+slug+"/trending_pools", nil)
	if err != nil {
		return nil, err
	}
	var resp poolsResp
	if err := c.http.DoJSON(ctx, "trending", req, &resp); err != nil {
		return nil, fmt.Errorf("geckoterminal trending %s: %w", slug, err)
	}

	out := make([]types.TokenCandidate, 0, len(resp.Data))
	for _, p := range resp.Data {
		addr := baseTokenAddress(p, slug)
		if addr == "" {
			continue
		}
		a := p.Attributes
		cand := types.TokenCandidate{
			Network:      network,
			Address:      addr,
			Symbol:       baseSymbol(a.Name),
			PriceUSD:     a.BaseTokenPriceUSD.F(),
			LiquidityUSD: a.ReserveInUSD.F(),
			Volume24hUSD: a.VolumeUSD.H24.F(),
			MarketCapUSD: a.MarketCapUSD.F(),
			Change1h:     a.PriceChange.H1.F(),
			Change24h:    a.PriceChange.H24.F(),
			Provider:     provider,
		}
		if cand.MarketCapUSD == 0 {
			cand.MarketCapUSD = a.FdvUSD.F()
		}
		out = append(out, cand)
	}
	c.log.Debug("trending pools", zap.String("network", slug), zap.Int("n", len(out)))
	return out, nil
}

// baseTokenAddress strips the "<slug>_" prefix from the relationship id.
func baseTokenAddress(p pool, slug string) string {
	if p.Relationships.BaseToken.Data == nil {
		return ""
	}
	id := p.Relationships.BaseToken.Data.ID
	return strings.TrimSpace(strings.TrimPrefix(id, slug+"_"))
}

// baseSymbol: "PEPE / WETH 0.3%" → "PEPE".
func baseSymbol(name string) string {
	sym, _, _ := strings.Cut(name, "/")
	return strings.TrimSpace(sym)
}
