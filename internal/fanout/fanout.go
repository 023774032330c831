// Package fanout dispatches one query to many networks in bounded batches.
package fanout

import (
	"context"
	"time"

	imetrics "github.com/you/tokenscope/internal/metrics"
	"github.com/you/tokenscope/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	// Exhaustive queries every network (phrase search).
	Exhaustive Mode = iota
	// ShortCircuit stops after the first batch with a hit (address lookup).
	ShortCircuit
)

// QueryFunc asks one network. Errors are swallowed by the coordinator.
type QueryFunc func(ctx context.Context, network types.Network) ([]types.TokenCandidate, error)

type Coordinator struct {
	BatchSize   int
	CallTimeout time.Duration
	Log         *zap.Logger
}

func New(batchSize int, callTimeout time.Duration, log *zap.Logger) *Coordinator {
	if batchSize <= 0 {
		batchSize = 4
	}
	if callTimeout <= 0 {
		callTimeout = 8 * time.Second
	}
	return &Coordinator{BatchSize: batchSize, CallTimeout: callTimeout, Log: log}
}

// Run queries networks batch by batch. Within a batch all calls run
// concurrently and are joined before the next batch. Results keep network
// order. A failed or timed-out network contributes nothing.
func (c *Coordinator) Run(ctx context.Context, networks []types.Network, mode Mode, fn QueryFunc) []types.TokenCandidate {
	var out []types.TokenCandidate

	for start := 0; start < len(networks); start += c.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+c.BatchSize, len(networks))
		batch := networks[start:end]
		per := make([][]types.TokenCandidate, len(batch))

		var g errgroup.Group
		for i, n := range batch {
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(ctx, c.CallTimeout)
				defer cancel()

				res, err := fn(callCtx, n)
				if err != nil {
					// сбой одной сети не роняет батч
					imetrics.FanOutFailures.WithLabelValues(n.String()).Inc()
					c.Log.Debug("network query failed", zap.Int64("network", int64(n)), zap.Error(err))
					return nil
				}
				per[i] = res
				return nil
			})
		}
		_ = g.Wait()

		hits := 0
		for _, r := range per {
			hits += len(r)
			out = append(out, r...)
		}
		if mode == ShortCircuit && hits > 0 {
			c.Log.Debug("fan-out short-circuit", zap.Int("after_networks", end), zap.Int("total_networks", len(networks)))
			break
		}
	}
	return out
}
