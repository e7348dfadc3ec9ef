// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/ava-labs/avalanchego/version"
	"github.com/gorilla/mux"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ava-labs/queryvm/api"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/memnode"
)

const (
	Name = "queryvm"

	metricsEndpoint = "/metrics"
	shutdownTimeout = 5 * time.Second
)

// Version of the binary, reported in the default user agent
var Version = &version.Semantic{
	Major: 0,
	Minor: 1,
	Patch: 0,
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", Name, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          Name,
		Short:        "Serves JSON-RPC chain queries from an in-memory node",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := getViper(cmd.Flags())
			if err != nil {
				return err
			}
			if v.GetBool(versionKey) {
				fmt.Printf("%s@%s\n", Name, Version)
				return nil
			}
			c, err := parseConfig(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, c)
		},
	}
	cmd.Flags().AddFlagSet(buildFlagSet())
	return cmd
}

func setupLogging(c config) {
	format := log.TerminalFormat()
	if c.LogFormat == jsonFormat {
		format = log.JsonFormat()
	}
	log.Root().SetHandler(log.LvlFilterHandler(c.LogLevel, log.StreamHandler(os.Stderr, format)))
}

func newRegistry() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	errs := wrappers.Errs{}
	errs.Add(
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Name})),
	)
	return registry, errs.Err
}

// newRouter serves the query API, its REST rendition and the metrics of
// [registry].
func newRouter(f *facade.Facade, registry *prometheus.Registry) (*mux.Router, error) {
	handler, err := api.NewHandler(f, registry, log.New("module", "api"))
	if err != nil {
		return nil, err
	}
	router := mux.NewRouter()
	router.Handle(api.Endpoint, handler).Methods(http.MethodPost)
	router.PathPrefix(api.RESTEndpoint + "/").Handler(api.NewRESTHandler(f, log.New("module", "rest")))
	router.Handle(metricsEndpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router, nil
}

func run(ctx context.Context, c config) error {
	setupLogging(c)

	registry, err := newRegistry()
	if err != nil {
		return err
	}
	genesis, err := memnode.DefaultGenesis()
	if err != nil {
		return err
	}
	node, err := memnode.New(c.Node, genesis, memdb.New(), registry, log.New("module", "memnode"))
	if err != nil {
		return fmt.Errorf("failed to start node: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			log.Error("failed to close node", "err", err)
		}
	}()

	f, err := facade.New(c.Facade, node.Backend(), log.New("module", "facade"))
	if err != nil {
		return err
	}
	router, err := newRouter(f, registry)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(c.HTTPHost, strconv.Itoa(int(c.HTTPPort))),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("serving queries", "addr", server.Addr, "endpoint", api.Endpoint)
		serveErr <- server.ListenAndServe()
	}()

	buildCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buildBlocks(buildCtx, node, c.BuildInterval)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildBlocks packs pending transactions every [interval] until [ctx] is
// done.
func buildBlocks(ctx context.Context, node *memnode.Node, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		blk, err := node.BuildBlock(ctx)
		switch {
		case errors.Is(err, memnode.ErrNoPendingTxs):
		case err != nil:
			log.Error("failed to build block", "err", err)
		default:
			log.Debug("built block", "blkID", blk.ID(), "height", blk.Height())
		}
	}
}
