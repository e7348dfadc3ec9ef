// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"net/http"

	avalancheJSON "github.com/ava-labs/avalanchego/utils/json"
	"github.com/gorilla/rpc/v2"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/queryvm/facade"
)

const (
	// Endpoint is the path the query service is served at
	Endpoint = "/ext/query"
	// ServiceName prefixes every method, as in "query.getBlock"
	ServiceName = "query"
	// Namespace of the API metrics
	Namespace = "queryvm"
)

// NewHandler returns the JSON-RPC handler for [f].
func NewHandler(f *facade.Facade, registerer prometheus.Registerer, logger log.Logger) (http.Handler, error) {
	if logger == nil {
		logger = log.New("module", "api")
	}
	m, err := newMetrics(Namespace, registerer)
	if err != nil {
		return nil, err
	}

	server := rpc.NewServer()
	server.RegisterCodec(avalancheJSON.NewCodec(), "application/json")
	server.RegisterCodec(avalancheJSON.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{facade: f, metrics: m, log: logger}, ServiceName); err != nil {
		return nil, err
	}
	return server, nil
}
