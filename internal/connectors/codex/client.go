// Package codex is the client for the Codex GraphQL token index, the
// primary provider.
package codex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/you/tokenscope/internal/connectors/httpx"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://graph.codex.io/graphql"
	provider   = "codex"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	RPS     float64
}

type Client struct {
	url  string
	key  string
	http *httpx.Client
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return &Client{
		url:  cfg.URL,
		key:  cfg.APIKey,
		http: httpx.New(provider, cfg.Timeout, cfg.RPS, log),
		log:  log.With(zap.String("component", "codex")),
	}
}

// GraphQLError: непустой errors в ответе. Такой вызов считается неудачным,
// даже если data частично заполнена.
type GraphQLError struct {
	Op       string
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("codex %s: graphql: %s", e.Op, strings.Join(e.Messages, "; "))
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do posts one query and decodes data into out.
func (c *Client) Do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("codex %s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", c.key)
	}

	var resp gqlResponse
	if err := c.http.DoJSON(ctx, op, req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return &GraphQLError{Op: op, Messages: msgs}
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("codex %s: empty data", op)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("codex %s: decode data: %w", op, err)
	}
	return nil
}

const filterTokensQuery = `query FilterTokens($phrase: String, $tokens: [String], $filters: TokenFilters, $rankings: [TokenRanking], $limit: Int) {
  filterTokens(phrase: $phrase, tokens: $tokens, filters: $filters, rankings: $rankings, limit: $limit) {
    results {
      token { address name symbol networkId }
      priceUSD
      liquidity
      volume24
      marketCap
      holders
      change1
      change4
      change12
      change24
    }
  }
}`

type filterTokensData struct {
	FilterTokens struct {
		Results Results `json:"results"`
	} `json:"filterTokens"`
}

func (c *Client) filter(ctx context.Context, op string, vars map[string]any, network types.Network) ([]types.TokenCandidate, error) {
	var data filterTokensData
	if err := c.Do(ctx, op, filterTokensQuery, vars, &data); err != nil {
		return nil, err
	}
	out := data.FilterTokens.Results.Candidates(network)
	c.log.Debug("filterTokens",
		zap.String("op", op),
		zap.Stringer("network", network),
		zap.String("shape", data.FilterTokens.Results.Kind.String()),
		zap.Int("n", len(out)))
	return out, nil
}

// Search runs a phrase search on one network.
func (c *Client) Search(ctx context.Context, phrase string, network types.Network, limit int) ([]types.TokenCandidate, error) {
	if limit <= 0 {
		limit = 25
	}
	vars := map[string]any{
		"phrase":  phrase,
		"filters": map[string]any{"network": []int64{int64(network)}},
		"limit":   limit,
	}
	return c.filter(ctx, "search", vars, network)
}

// TokenByAddress looks one address up on one network.
func (c *Client) TokenByAddress(ctx context.Context, address string, network types.Network) ([]types.TokenCandidate, error) {
	vars := map[string]any{
		"tokens": []string{strings.TrimSpace(address) + ":" + network.String()},
		"limit":  1,
	}
	return c.filter(ctx, "token", vars, network)
}

// Trending ranks a network by 24h trending score with a liquidity floor.
func (c *Client) Trending(ctx context.Context, network types.Network, minLiquidity float64, limit int) ([]types.TokenCandidate, error) {
	if limit <= 0 {
		limit = 20
	}
	filters := map[string]any{"network": []int64{int64(network)}}
	if minLiquidity > 0 {
		filters["liquidity"] = map[string]any{"gt": minLiquidity}
	}
	vars := map[string]any{
		"filters":  filters,
		"rankings": []map[string]any{{"attribute": "trendingScore24", "direction": "DESC"}},
		"limit":    limit,
	}
	return c.filter(ctx, "trending", vars, network)
}
