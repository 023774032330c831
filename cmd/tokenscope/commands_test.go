package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/tokenscope/internal/types"
)

// fakeUpstream answers every provider with empty data except codex search.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":{"filterTokens":{"results":[
			  {"token":{"address":"0x1111111111111111111111111111111111111111","symbol":"WIF","name":"dogwifhat","networkId":1},
			   "priceUSD":"1.2","liquidity":"2000000","volume24":"1000000","marketCap":"500000000","holders":"50000"}
			]}}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, upstream string) string {
	t.Helper()
	body := "log:\n  level: error\n" +
		"codex:\n  url: " + upstream + "\n" +
		"coingecko:\n  url: " + upstream + "\n  pro_url: " + upstream + "\n" +
		"dexscreener:\n  url: " + upstream + "\n" +
		"geckoterminal:\n  url: " + upstream + "\n"
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	cfg := writeConfig(t, fakeUpstream(t).URL)
	out, err := run(t, "--config", cfg, "search", "wif", "--networks", "1")
	require.NoError(t, err)

	var res []types.ScoredCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "WIF", res[0].Symbol)
	assert.Equal(t, 1, res[0].Tier)
}

func TestPriceCommand_ZeroRecordOnTotalMiss(t *testing.T) {
	cfg := writeConfig(t, fakeUpstream(t).URL)
	out, err := run(t, "--config", cfg, "price", "nothing")
	require.NoError(t, err)

	var rec types.PriceRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "NOTHING", rec.Symbol)
	assert.Equal(t, types.SourceNone, rec.Source)
}

func TestTokenCommand_RejectsBadInput(t *testing.T) {
	_, err := run(t, "token", "1", "0x1234")
	assert.ErrorContains(t, err, "invalid address")

	_, err = run(t, "token", "eth", "0x1111111111111111111111111111111111111111")
	assert.ErrorContains(t, err, "bad network")

	_, err = run(t, "token", "1")
	assert.Error(t, err)
}

func TestSearchCommand_BadNetworks(t *testing.T) {
	_, err := run(t, "search", "wif", "--networks", "1,x")
	assert.ErrorContains(t, err, "bad network")
}
