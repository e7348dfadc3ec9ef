// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/queryvm/api"
	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/memnode"
)

func parseArgs(t *testing.T, args ...string) (config, error) {
	fs := buildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := getViper(fs)
	require.NoError(t, err)
	return parseConfig(v)
}

func TestParseConfigDefaults(t *testing.T) {
	require := require.New(t)

	c, err := parseArgs(t)
	require.NoError(err)
	require.Equal("127.0.0.1", c.HTTPHost)
	require.Equal(uint16(9650), c.HTTPPort)
	require.Equal(log.LvlInfo, c.LogLevel)
	require.Equal(facade.DefaultConfig(), c.Facade)
	require.Equal(uint16(9651), c.Node.NodeInfo.TCPPort)
	require.Equal(5*time.Second, c.BuildInterval)
	require.Empty(c.Node.BlockedSenders)
}

func TestParseConfigFlagsAndEnv(t *testing.T) {
	require := require.New(t)

	blocked, err := chain.FormatAddress("fuji", ids.ShortID{1})
	require.NoError(err)
	t.Setenv("QUERYVM_MAX_GAS_INVOKE", "42")
	t.Setenv("QUERYVM_LOG_LEVEL", "debug")

	c, err := parseArgs(t,
		"--address-hrp=fuji",
		"--http-port=8080",
		"--seed-peers=10.0.0.1:9651,10.0.0.2:9651",
		"--blocked-senders="+blocked+","+ids.ShortID{2}.String(),
		"--log-format=json",
	)
	require.NoError(err)
	require.Equal(uint64(42), c.Facade.MaxGasInvoke)
	require.Equal("fuji", c.Facade.AddressHRP)
	require.Equal(uint16(8080), c.HTTPPort)
	require.Equal(log.LvlDebug, c.LogLevel)
	require.Equal(jsonFormat, c.LogFormat)
	require.Equal([]string{"10.0.0.1:9651", "10.0.0.2:9651"}, c.Node.SeedPeers)
	require.Equal([]ids.ShortID{{1}, {2}}, c.Node.BlockedSenders)
}

func TestParseConfigFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(path, []byte(`{"mempool-size": 16, "user-agent": "/custom/"}`), 0o600))

	c, err := parseArgs(t, "--config-file="+path, "--validators-count=4")
	require.NoError(err)
	require.Equal(16, c.Node.MempoolSize)
	require.Equal(4, c.Node.ValidatorsCount)
	require.Equal("/custom/", c.Node.NodeInfo.UserAgent)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero gas", args: []string{"--max-gas-invoke=0"}},
		{name: "empty hrp", args: []string{"--address-hrp="}},
		{name: "bad port", args: []string{"--http-port=70000"}},
		{name: "bad ws port", args: []string{"--ws-port=65536"}},
		{name: "bad log level", args: []string{"--log-level=loud"}},
		{name: "bad log format", args: []string{"--log-format=xml"}},
		{name: "bad interval", args: []string{"--build-interval=0s"}},
		{name: "bad blocked sender", args: []string{"--blocked-senders=nobody"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseArgs(t, test.args...)
			require.Error(t, err)
		})
	}
}

func TestRouter(t *testing.T) {
	require := require.New(t)

	registry, err := newRegistry()
	require.NoError(err)
	genesis, err := memnode.DefaultGenesis()
	require.NoError(err)
	node, err := memnode.New(memnode.Config{}, genesis, memdb.New(), registry, nil)
	require.NoError(err)
	f, err := facade.New(facade.DefaultConfig(), node.Backend(), nil)
	require.NoError(err)
	router, err := newRouter(f, registry)
	require.NoError(err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, metricsEndpoint, nil))
	require.Equal(http.StatusOK, w.Code)
	require.Contains(w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, api.Endpoint, nil))
	require.Equal(http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, api.RESTEndpoint+"/blocks/count", nil))
	require.Equal(http.StatusOK, w.Code)
	require.JSONEq(`{"count":"1"}`, w.Body.String())
}

func TestBuildBlocks(t *testing.T) {
	require := require.New(t)

	genesis, err := memnode.DefaultGenesis()
	require.NoError(err)
	node, err := memnode.New(memnode.Config{}, genesis, memdb.New(), prometheus.NewRegistry(), nil)
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// returns once the context expires, with nothing to build
	buildBlocks(ctx, node, time.Millisecond)

	_, height, err := node.Store().LastAccepted(context.Background())
	require.NoError(err)
	require.Zero(height)
}
