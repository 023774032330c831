package cache

import (
	"context"
	"encoding/json"
	"time"

	imetrics "github.com/you/tokenscope/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a shared load once it is detached from the
// caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// Loader is a read-through/write-through front of a Store. Concurrent loads
// of the same key share one upstream call.
type Loader struct {
	store   Store
	group   singleflight.Group
	log     *zap.Logger
	timeout time.Duration
}

func NewLoader(store Store, log *zap.Logger) *Loader {
	return &Loader{store: store, log: log, timeout: DefaultLoadTimeout}
}

// WithLoadTimeout overrides DefaultLoadTimeout; d <= 0 keeps the current one.
func (l *Loader) WithLoadTimeout(d time.Duration) *Loader {
	if d > 0 {
		l.timeout = d
	}
	return l
}

func (l *Loader) Store() Store { return l.store }

// Remember returns the cached value for key, or runs load and caches its
// result for ttl when keep is true. op labels the hit/miss metric.
//
// The shared load is not tied to the ctx of whichever caller started it:
// a cancelled caller returns the zero T, the others still get the result.
func Remember[T any](ctx context.Context, l *Loader, op, key string, ttl time.Duration, load func(context.Context) (T, bool)) T {
	if b, ok := l.store.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			imetrics.CacheLookups.WithLabelValues(op, "hit").Inc()
			return v
		}
		l.log.Warn("cache entry undecodable, reloading", zap.String("key", key))
	}
	imetrics.CacheLookups.WithLabelValues(op, "miss").Inc()

	ch := l.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		v, keep := load(lctx)
		if keep {
			if b, err := json.Marshal(v); err == nil {
				l.store.Set(lctx, key, b, ttl)
			} else {
				l.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val.(T)
	case <-ctx.Done():
		var zero T
		return zero
	}
}
