// Package app assembles tokenscope from configuration and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/tokenscope/internal/aggregator"
	"github.com/you/tokenscope/internal/api"
	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/config"
	"github.com/you/tokenscope/internal/connectors/codex"
	"github.com/you/tokenscope/internal/connectors/coingecko"
	"github.com/you/tokenscope/internal/connectors/dexscreener"
	"github.com/you/tokenscope/internal/connectors/geckoterminal"
	"github.com/you/tokenscope/internal/fanout"
	"github.com/you/tokenscope/internal/metrics"
	"github.com/you/tokenscope/internal/screener"
	"go.uber.org/zap"
)

// App manages the application's lifecycle and components.
type App struct {
	cfg   *config.Config
	log   *zap.Logger
	store cache.Store
	redis *cache.Redis
	svc   *aggregator.Service
}

// New builds every component. An unreachable Redis is not fatal: the
// process falls back to the in-memory store.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) *App {
	a := &App{cfg: cfg, log: log}

	a.store = cache.NewMemory()
	if cfg.Redis.Enabled {
		r := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			Prefix:   cfg.Redis.Prefix,
		}, log)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := r.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = r.Close()
		} else {
			log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
			a.store, a.redis = r, r
		}
	}

	deps := aggregator.Deps{
		Primary: codex.New(codex.Config{
			URL:     cfg.Codex.URL,
			APIKey:  cfg.Codex.APIKey,
			Timeout: cfg.Codex.Timeout,
			RPS:     cfg.Codex.RPS,
		}, log),
		Prices: coingecko.New(coingecko.Config{
			APIKey:  cfg.CoinGecko.APIKey,
			Pro:     cfg.CoinGecko.Pro,
			DemoURL: cfg.CoinGecko.URL,
			ProURL:  cfg.CoinGecko.ProURL,
			Timeout: cfg.CoinGecko.Timeout,
			RPS:     cfg.CoinGecko.RPS,
		}, log),
		Pairs: dexscreener.New(dexscreener.Config{
			URL:     cfg.DexScreener.URL,
			Timeout: cfg.DexScreener.Timeout,
			RPS:     cfg.DexScreener.RPS,
		}, log),
		Trending: geckoterminal.New(geckoterminal.Config{
			URL:     cfg.GeckoTerminal.URL,
			Timeout: cfg.GeckoTerminal.Timeout,
			RPS:     cfg.GeckoTerminal.RPS,
		}, log),
		Cache:  cache.NewLoader(a.store, log),
		FanOut: fanout.New(cfg.Aggregator.BatchSize, cfg.Aggregator.CallTimeout, log),
		Scorer: screener.NewScorer(cfg.Scoring),
	}
	a.svc = aggregator.New(deps, cfg.AggregatorOptions(), log)
	return a
}

func (a *App) Service() *aggregator.Service { return a.svc }

func (a *App) Store() cache.Store { return a.store }

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// Run serves the HTTP API and the metrics endpoint until ctx is done or
// the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.log.Warn("received signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := metrics.Serve(ctx, a.cfg.Metrics.Addr, metrics.Handler(nil), a.log); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           api.NewRouter(a.svc, a.log),
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
		return err
	}
	a.log.Info("tokenscope finished")
	return nil
}
