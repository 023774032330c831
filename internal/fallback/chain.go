// Package fallback runs an ordered list of providers for one logical lookup
// and stops at the first usable answer.
package fallback

import (
	"context"
	"time"

	imetrics "github.com/you/tokenscope/internal/metrics"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
)

// Step is one provider attempt. ok=false or a non-nil error both mean
// "this step produced nothing".
type Step[T any] struct {
	Name   string
	Source types.Source
	Run    func(ctx context.Context) (T, bool, error)
}

type Chain[T any] struct {
	name   string
	steps  []Step[T]
	usable func(T) bool
	log    *zap.Logger
}

// New builds a chain. usable may be nil, in which case ok=true is enough.
func New[T any](name string, log *zap.Logger, usable func(T) bool, steps ...Step[T]) *Chain[T] {
	return &Chain[T]{name: name, steps: steps, usable: usable, log: log}
}

// Resolve never fails: total exhaustion returns the zero T and SourceNone.
func (c *Chain[T]) Resolve(ctx context.Context) (T, types.Source) {
	var zero T
	for _, st := range c.steps {
		if ctx.Err() != nil {
			break
		}
		started := time.Now()
		v, ok, err := st.Run(ctx)
		if err != nil {
			c.log.Debug("fallback step failed",
				zap.String("chain", c.name),
				zap.String("step", st.Name),
				zap.Duration("took", time.Since(started)),
				zap.Error(err),
			)
			continue
		}
		if !ok || (c.usable != nil && !c.usable(v)) {
			c.log.Debug("fallback step empty", zap.String("chain", c.name), zap.String("step", st.Name))
			continue
		}
		imetrics.FallbackSource.WithLabelValues(c.name, string(st.Source)).Inc()
		return v, st.Source
	}
	imetrics.FallbackSource.WithLabelValues(c.name, string(types.SourceNone)).Inc()
	return zero, types.SourceNone
}
