// Package api is the HTTP surface over the aggregation facade.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

// Facade is what the handlers need from the aggregator.
type Facade interface {
	SearchTokens(ctx context.Context, phrase string, networks []types.Network) []types.ScoredCandidate
	ResolvePrice(ctx context.Context, symbol string) types.PriceRecord
	ResolvePrices(ctx context.Context, symbols []string) map[string]types.PriceRecord
	ListTrending(ctx context.Context, networks []types.Network, limit int) []types.TokenCandidate
	LookupToken(ctx context.Context, address string, networks []types.Network) (types.TokenCandidate, types.Source)
}

const RequestIDHeader = "X-Request-ID"

type Handlers struct {
	f   Facade
	log *zap.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(f Facade, log *zap.Logger) *gin.Engine {
	h := &Handlers{f: f, log: log.With(zap.String("component", "api"))}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(h.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	v1 := r.Group("/v1")
	v1.GET("/search", h.search)
	v1.GET("/price/:symbol", h.price)
	v1.GET("/prices", h.prices)
	v1.GET("/trending", h.trending)
	v1.GET("/tokens/:network/:address", h.token)
	return r
}

// RequestID keeps an incoming X-Request-ID or issues a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.Info("http",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(started)),
		)
	}
}
