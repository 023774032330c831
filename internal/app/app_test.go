package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/tokenscope/internal/cache"
	"github.com/you/tokenscope/internal/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Metrics.Addr = ""
	return cfg
}

func TestNew_InMemoryByDefault(t *testing.T) {
	a := New(context.Background(), testConfig(), zap.NewNop())
	defer a.Close()

	assert.NotNil(t, a.Service())
	_, ok := a.Store().(*cache.Memory)
	assert.True(t, ok)
	assert.Equal(t, 15, a.Service().Options().SearchLimit)
}

func TestNew_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	a := New(context.Background(), cfg, zap.NewNop())
	defer a.Close()

	_, ok := a.Store().(*cache.Redis)
	require.True(t, ok)

	a.Store().Set(context.Background(), "price:BTC", []byte(`{}`), time.Minute)
	assert.True(t, mr.Exists("tokenscope:price:BTC"))
}

func TestNew_FallsBackWhenRedisDown(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	a := New(context.Background(), cfg, zap.NewNop())
	_, ok := a.Store().(*cache.Memory)
	assert.True(t, ok)
	assert.NoError(t, a.Close())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	a := New(context.Background(), testConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Addr = "256.0.0.1:99999"
	err := New(context.Background(), cfg, zap.NewNop()).Run(context.Background())
	assert.ErrorContains(t, err, "listen")
}

func TestRun_MetricsListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Addr = "256.0.0.1:99999"
	err := New(context.Background(), cfg, zap.NewNop()).Run(context.Background())
	assert.ErrorContains(t, err, "metrics listen")
}
