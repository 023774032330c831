package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/you/tokenscope/internal/aggregator"
	"github.com/you/tokenscope/internal/connectors/codex"
	"github.com/you/tokenscope/internal/connectors/coingecko"
	"github.com/you/tokenscope/internal/connectors/dexscreener"
	"github.com/you/tokenscope/internal/connectors/geckoterminal"
	"github.com/you/tokenscope/internal/screener"
	"github.com/you/tokenscope/internal/types"
	"gopkg.in/yaml.v3"
)

type Provider struct {
	URL     string        `yaml:"url" validate:"required,url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	RPS     float64       `yaml:"rps" validate:"gte=0"`
}

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr" validate:"required"`
		ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
		WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	} `yaml:"server"`

	Metrics struct {
		Addr string `yaml:"addr"` // пусто: метрики выключены
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"log"`

	Codex Provider `yaml:"codex"`

	CoinGecko struct {
		Provider `yaml:",inline"`
		Pro      bool              `yaml:"pro"`
		ProURL   string            `yaml:"pro_url" validate:"required,url"`
		IDs      map[string]string `yaml:"ids"`
	} `yaml:"coingecko"`

	DexScreener   Provider `yaml:"dexscreener"`
	GeckoTerminal Provider `yaml:"geckoterminal"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" validate:"required_if=Enabled true"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Cache struct {
		PriceTTL    time.Duration `yaml:"price_ttl" validate:"gt=0"`
		SearchTTL   time.Duration `yaml:"search_ttl" validate:"gt=0"`
		TokenTTL    time.Duration `yaml:"token_ttl" validate:"gt=0"`
		TrendingTTL time.Duration `yaml:"trending_ttl" validate:"gt=0"`
	} `yaml:"cache"`

	Aggregator struct {
		Networks             []types.Network                `yaml:"networks" validate:"min=1,dive,gt=0"`
		SearchLimit          int                            `yaml:"search_limit" validate:"gt=0"`
		PerNetworkLimit      int                            `yaml:"per_network_limit" validate:"gt=0"`
		TrendingLimit        int                            `yaml:"trending_limit" validate:"gt=0"`
		TrendingMinLiquidity float64                        `yaml:"trending_min_liquidity" validate:"gte=0"`
		BatchSize            int                            `yaml:"batch_size" validate:"gt=0"`
		CallTimeout          time.Duration                  `yaml:"call_timeout" validate:"gt=0"`
		PriceConcurrency     int                            `yaml:"price_concurrency" validate:"gt=0"`
		Overrides            map[string]aggregator.Override `yaml:"overrides"`
	} `yaml:"aggregator"`

	Scoring screener.Rules `yaml:"scoring"`
}

// Default is a ready-to-run configuration without API keys.
func Default() *Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 5 * time.Second

	c.Metrics.Addr = ":9102"
	c.Log.Level = "info"

	c.Codex = Provider{URL: codex.DefaultURL, Timeout: 10 * time.Second, RPS: 5}
	c.CoinGecko.Provider = Provider{URL: coingecko.BaseDemo, Timeout: 10 * time.Second, RPS: 0.5}
	c.CoinGecko.ProURL = coingecko.BasePro
	c.CoinGecko.IDs = copyMap(coingecko.DefaultIDs)
	c.DexScreener = Provider{URL: dexscreener.DefaultURL, Timeout: 10 * time.Second, RPS: 4}
	c.GeckoTerminal = Provider{URL: geckoterminal.DefaultURL, Timeout: 10 * time.Second, RPS: 0.5}

	c.Redis.Addr = "127.0.0.1:6379"
	c.Redis.Prefix = "tokenscope:"

	agg := aggregator.DefaultOptions()
	c.Cache.PriceTTL = agg.PriceTTL
	c.Cache.SearchTTL = agg.SearchTTL
	c.Cache.TokenTTL = agg.TokenTTL
	c.Cache.TrendingTTL = agg.TrendingTTL

	c.Aggregator.Networks = agg.Networks
	c.Aggregator.SearchLimit = agg.SearchLimit
	c.Aggregator.PerNetworkLimit = agg.PerNetworkLimit
	c.Aggregator.TrendingLimit = agg.TrendingLimit
	c.Aggregator.TrendingMinLiquidity = agg.TrendingMinLiquidity
	c.Aggregator.BatchSize = 4
	c.Aggregator.CallTimeout = 8 * time.Second
	c.Aggregator.PriceConcurrency = agg.PriceConcurrency
	c.Aggregator.Overrides = agg.Overrides

	c.Scoring = screener.DefaultRules()
	return &c
}

// Load reads path over Default(). A missing file is not an error: the
// defaults are returned as is. API keys may also come from CODEX_API_KEY
// and COINGECKO_API_KEY.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if k := os.Getenv("CODEX_API_KEY"); k != "" && c.Codex.APIKey == "" {
		c.Codex.APIKey = k
	}
	if k := os.Getenv("COINGECKO_API_KEY"); k != "" && c.CoinGecko.APIKey == "" {
		c.CoinGecko.APIKey = k
	}
	c.Scoring = c.Scoring.WithDefaults()
	// поиск идёт по символу в верхнем регистре
	c.Aggregator.Overrides = upperKeys(c.Aggregator.Overrides)
	c.CoinGecko.IDs = upperKeys(c.CoinGecko.IDs)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AggregatorOptions maps the config onto the facade options.
func (c *Config) AggregatorOptions() aggregator.Options {
	return aggregator.Options{
		Networks:             c.Aggregator.Networks,
		SearchLimit:          c.Aggregator.SearchLimit,
		PerNetworkLimit:      c.Aggregator.PerNetworkLimit,
		TrendingLimit:        c.Aggregator.TrendingLimit,
		TrendingMinLiquidity: c.Aggregator.TrendingMinLiquidity,
		PriceConcurrency:     c.Aggregator.PriceConcurrency,
		PriceTTL:             c.Cache.PriceTTL,
		SearchTTL:            c.Cache.SearchTTL,
		TokenTTL:             c.Cache.TokenTTL,
		TrendingTTL:          c.Cache.TrendingTTL,
		Overrides:            c.Aggregator.Overrides,
		CoinGeckoIDs:         c.CoinGecko.IDs,
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// upperKeys re-keys m by the trimmed upper-case symbol. Blank keys are dropped.
func upperKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			out[k] = v
		}
	}
	return out
}
