// Package httpx is the JSON-over-HTTP plumbing shared by provider clients.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	imetrics "github.com/you/tokenscope/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPError is a non-2xx upstream answer.
type HTTPError struct {
	Provider string
	Status   int
	URL      string
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d %s: %s", e.Provider, e.Status, e.URL, Truncate(e.Body, 240))
}

// RateLimited reports a 429 or a throttling body.
func (e *HTTPError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(e.Body), "throttled")
}

type Client struct {
	Provider  string
	HTTP      *http.Client
	Limiter   *rate.Limiter // nil: без ограничения
	UserAgent string
	Log       *zap.Logger
}

// New builds a client; rps <= 0 disables pacing.
func New(provider string, timeout time.Duration, rps float64, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var lim *rate.Limiter
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return &Client{
		Provider:  provider,
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   lim,
		UserAgent: "tokenscope/1.0",
		Log:       log.With(zap.String("provider", provider)),
	}
}

// DoJSON sends req and decodes a 2xx body into v. op labels metrics.
func (c *Client) DoJSON(ctx context.Context, op string, req *http.Request, v any) (err error) {
	started := time.Now()
	defer func() {
		imetrics.ProviderCalls.WithLabelValues(c.Provider, op, imetrics.Outcome(err)).Inc()
		imetrics.ProviderLatency.WithLabelValues(c.Provider, op).Observe(time.Since(started).Seconds())
	}()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate wait: %w", c.Provider, err)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	c.Log.Debug("http request", zap.String("op", op), zap.String("method", req.Method), zap.String("url", req.URL.Redacted()))
	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.Provider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{
			Provider: c.Provider,
			Status:   resp.StatusCode,
			URL:      req.URL.Redacted(),
			Body:     strings.TrimSpace(string(b)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s %s: decode: %w", c.Provider, op, err)
	}
	return nil
}

func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
