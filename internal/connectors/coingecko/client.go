// Package coingecko is the secondary price provider.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/you/tokenscope/internal/connectors/httpx"
	"go.uber.org/zap"
)

const (
	BaseDemo = "https://api.coingecko.com/api/v3"
	BasePro  = "https://pro-api.coingecko.com/api/v3"
	provider = "coingecko"
)

// DefaultIDs maps upper-case symbols to CoinGecko coin ids.
var DefaultIDs = map[string]string{
	"BTC":   "bitcoin",
	"WBTC":  "wrapped-bitcoin",
	"ETH":   "ethereum",
	"WETH":  "weth",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"DAI":   "dai",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"MATIC": "matic-network",
	"POL":   "polygon-ecosystem-token",
	"AVAX":  "avalanche-2",
	"FTM":   "fantom",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"PEPE":  "pepe",
	"DOGE":  "dogecoin",
	"SHIB":  "shiba-inu",
	"JUP":   "jupiter-exchange-solana",
	"BONK":  "bonk",
	"WIF":   "dogwifcoin",
}

type Config struct {
	APIKey  string
	Pro     bool
	DemoURL string
	ProURL  string
	Timeout time.Duration
	RPS     float64
}

type Client struct {
	key     string
	demoURL string
	proURL  string
	http    *httpx.Client
	log     *zap.Logger

	mu    sync.Mutex
	isPro bool
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.DemoURL == "" {
		cfg.DemoURL = BaseDemo
	}
	if cfg.ProURL == "" {
		cfg.ProURL = BasePro
	}
	return &Client{
		key:     cfg.APIKey,
		demoURL: strings.TrimRight(cfg.DemoURL, "/"),
		proURL:  strings.TrimRight(cfg.ProURL, "/"),
		isPro:   cfg.Pro,
		http:    httpx.New(provider, cfg.Timeout, cfg.RPS, log),
		log:     log.With(zap.String("component", "coingecko")),
	}
}

// Pro reports which root the client currently talks to.
func (c *Client) Pro() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPro
}

func (c *Client) root() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isPro {
		return c.proURL, true
	}
	return c.demoURL, false
}

func (c *Client) setPro(v bool) {
	c.mu.Lock()
	c.isPro = v
	c.mu.Unlock()
}

func (c *Client) makeReq(ctx context.Context, pathAndQuery string) (*http.Request, error) {
	base, isPro := c.root()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		if isPro {
			req.Header.Set("x-cg-pro-api-key", c.key)
		} else {
			req.Header.Set("x-cg-demo-api-key", c.key)
		}
	}
	return req, nil
}

type wrongRoot int

const (
	rootOK wrongRoot = iota
	needPro
	needDemo
)

// classify reads CoinGecko's "wrong root" answers:
// 10010: ключ pro, а хост демо; 10011: ключ демо, а хост pro.
func classify(err error) wrongRoot {
	var he *httpx.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest {
		return rootOK
	}
	body := strings.ToLower(he.Body)
	switch {
	case strings.Contains(body, "10011") || strings.Contains(body, "demo api key"):
		return needDemo
	case strings.Contains(body, "10010") || strings.Contains(body, "pro-api.coingecko.com"):
		return needPro
	}
	return rootOK
}

// getJSON issues the request and switches the root at most once when
// CoinGecko says the key belongs to the other host.
func (c *Client) getJSON(ctx context.Context, op, pathAndQuery string, v any) error {
	switched := false
	for {
		req, err := c.makeReq(ctx, pathAndQuery)
		if err != nil {
			return err
		}
		err = c.http.DoJSON(ctx, op, req, v)
		if err == nil || switched {
			return err
		}
		switch classify(err) {
		case needPro:
			c.log.Info("wrong root (10010), switching", zap.String("root", c.proURL))
			c.setPro(true)
		case needDemo:
			c.log.Info("wrong root (10011), switching", zap.String("root", c.demoURL))
			c.setPro(false)
		default:
			return err
		}
		switched = true
	}
}

// Quote is a simple/price entry.
type Quote struct {
	PriceUSD  float64
	Change24h float64
}

type simplePriceEntry struct {
	USD          httpx.Float `json:"usd"`
	USD24hChange httpx.Float `json:"usd_24h_change"`
}

// SimplePrice fetches USD prices for coin ids. Ids without a positive
// price are left out of the result.
func (c *Client) SimplePrice(ctx context.Context, ids ...string) (map[string]Quote, error) {
	uniq := make(map[string]struct{}, len(ids))
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := uniq[id]; dup {
			continue
		}
		uniq[id] = struct{}{}
		list = append(list, id)
	}
	if len(list) == 0 {
		return map[string]Quote{}, nil
	}
	sort.Strings(list)

	q := url.Values{}
	q.Set("ids", strings.Join(list, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	var raw map[string]simplePriceEntry
	if err := c.getJSON(ctx, "simple_price", "/simple/price?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("coingecko simple price: %w", err)
	}
	out := make(map[string]Quote, len(raw))
	for id, e := range raw {
		if e.USD.F() <= 0 {
			continue
		}
		out[id] = Quote{PriceUSD: e.USD.F(), Change24h: e.USD24hChange.F()}
	}
	return out, nil
}
