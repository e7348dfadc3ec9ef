// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	stdjson "encoding/json"
	"net/http"
	"strconv"

	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2/json2"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/queryvm/facade"
)

// RESTEndpoint prefixes every REST route, as in "/ext/rest/blocks/count"
const RESTEndpoint = "/ext/rest"

type restFunc func(r *http.Request, vars map[string]string) (interface{}, error)

type restHandler struct {
	facade *facade.Facade
	log    log.Logger
}

// NewRESTHandler serves the operations of [f] as plain HTTP resources.
// Failures carry the same codes as the JSON-RPC service.
func NewRESTHandler(f *facade.Facade, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.New("module", "rest")
	}
	h := &restHandler{facade: f, log: logger}

	router := mux.NewRouter()
	s := router.PathPrefix(RESTEndpoint).Subrouter()
	get := func(path string, fn restFunc) {
		s.Handle(path, h.wrap(fn)).Methods(http.MethodGet)
	}

	get("/blocks/bestblockhash", h.bestBlockHash)
	get("/blocks/count", h.blockCount)
	get("/blocks/getblockbyindex", h.blockByIndex)
	get("/blocks/getblockbyhash", h.blockByHash)
	get("/blocks/{index}/hash", h.blockHash)
	get("/blocks/{index}/header/{verbose}", h.blockHeader)
	get("/blocks/{index}/sysfee", h.blockSysFee)

	s.Handle("/contracts/invokingfunction", h.wrap(h.invokeFunction)).Methods(http.MethodPost)
	s.Handle("/contracts/invokingscript", h.wrap(h.invokeScript)).Methods(http.MethodPost)
	get("/contracts/{scriptHash}", h.contractState)
	get("/contracts/{scriptHash}/storage/{key}/value", h.storage)

	// static segments are registered ahead of the {txid} routes
	get("/transactions/broadcasting/{hex}", h.sendRawTransaction)
	get("/transactions/{txid}/height", h.transactionHeight)
	get("/transactions/{txid}/{verbose}", h.rawTransaction)

	get("/validators/latest", h.validators)
	get("/validators/submitblock/{hex}", h.submitBlock)
	get("/wallets/verifyingaddress/{address}", h.validateAddress)

	get("/network/localnode/rawmempool/{getUnverified}", h.rawMempool)
	get("/network/localnode/version", h.version)
	get("/network/localnode/connections", h.connectionCount)
	get("/network/localnode/peers", h.peers)
	get("/network/localnode/plugins", h.plugins)
	return router
}

func (h *restHandler) wrap(fn restFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := fn(r, mux.Vars(r))
		if err != nil {
			rpcErr := toRPCError(err)
			h.log.Debug("request failed", "path", r.URL.Path, "code", rpcErr.Code, "err", err)
			h.write(w, restStatus(rpcErr.Code), rpcErr)
			return
		}
		h.write(w, http.StatusOK, result)
	})
}

func (h *restHandler) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := stdjson.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("failed to write response", "err", err)
	}
}

func restStatus(code json2.ErrorCode) int {
	switch facade.Code(code) {
	case facade.CodeNotFound:
		return http.StatusNotFound
	case facade.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// parseFlag reads the 0/1 integer switches of the REST routes.
func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return false, facade.ErrInvalidParams.WithData(err.Error())
	}
	return v != 0, nil
}

func (h *restHandler) bestBlockHash(r *http.Request, _ map[string]string) (interface{}, error) {
	hash, err := h.facade.BestBlockHash(r.Context())
	return &HashReply{Hash: hash}, err
}

func (h *restHandler) blockCount(r *http.Request, _ map[string]string) (interface{}, error) {
	count, err := h.facade.GetBlockCount(r.Context())
	return &CountReply{Count: json.Uint64(count)}, err
}

func (h *restHandler) blockByIndex(r *http.Request, _ map[string]string) (interface{}, error) {
	query := r.URL.Query()
	height, err := parseHeight(query.Get("index"))
	if err != nil {
		return nil, err
	}
	verbose, err := parseFlag(query.Get("verbose"))
	if err != nil {
		return nil, err
	}
	return h.facade.GetBlock(r.Context(), strconv.FormatUint(height, 10), verbose)
}

func (h *restHandler) blockByHash(r *http.Request, _ map[string]string) (interface{}, error) {
	query := r.URL.Query()
	key, err := facade.ParseKey(query.Get("hash"))
	switch {
	case err != nil:
		return nil, err
	case key.IsHeight():
		return nil, facade.ErrMalformedHash
	}
	verbose, err := parseFlag(query.Get("verbose"))
	if err != nil {
		return nil, err
	}
	return h.facade.GetBlock(r.Context(), key.Hash().String(), verbose)
}

func (h *restHandler) blockHash(r *http.Request, vars map[string]string) (interface{}, error) {
	height, err := parseHeight(vars["index"])
	if err != nil {
		return nil, err
	}
	hash, err := h.facade.GetBlockHash(r.Context(), height)
	return &HashReply{Hash: hash}, err
}

func (h *restHandler) blockHeader(r *http.Request, vars map[string]string) (interface{}, error) {
	height, err := parseHeight(vars["index"])
	if err != nil {
		return nil, err
	}
	verbose, err := parseFlag(vars["verbose"])
	if err != nil {
		return nil, err
	}
	return h.facade.GetBlockHeader(r.Context(), strconv.FormatUint(height, 10), verbose)
}

func (h *restHandler) blockSysFee(r *http.Request, vars map[string]string) (interface{}, error) {
	height, err := parseHeight(vars["index"])
	if err != nil {
		return nil, err
	}
	fee, err := h.facade.GetBlockSysFee(r.Context(), height)
	return &FeeReply{Fee: json.Uint64(fee)}, err
}

func (h *restHandler) contractState(r *http.Request, vars map[string]string) (interface{}, error) {
	return h.facade.GetContractState(r.Context(), vars["scriptHash"])
}

func (h *restHandler) storage(r *http.Request, vars map[string]string) (interface{}, error) {
	return h.facade.GetStorage(r.Context(), vars["scriptHash"], vars["key"])
}

func (h *restHandler) rawMempool(r *http.Request, vars map[string]string) (interface{}, error) {
	unverified, err := parseFlag(vars["getUnverified"])
	if err != nil {
		return nil, err
	}
	return h.facade.GetRawMempool(r.Context(), unverified)
}

func (h *restHandler) rawTransaction(r *http.Request, vars map[string]string) (interface{}, error) {
	verbose, err := parseFlag(vars["verbose"])
	if err != nil {
		return nil, err
	}
	return h.facade.GetRawTransaction(r.Context(), vars["txid"], verbose)
}

func (h *restHandler) transactionHeight(r *http.Request, vars map[string]string) (interface{}, error) {
	height, err := h.facade.GetTransactionHeight(r.Context(), vars["txid"])
	return &HeightReply{Height: json.Uint64(height)}, err
}

func (h *restHandler) validators(r *http.Request, _ map[string]string) (interface{}, error) {
	validators, err := h.facade.GetValidators(r.Context())
	return &ValidatorsReply{Validators: validators}, err
}

func (h *restHandler) version(r *http.Request, _ map[string]string) (interface{}, error) {
	return h.facade.GetVersion(r.Context())
}

func (h *restHandler) connectionCount(r *http.Request, _ map[string]string) (interface{}, error) {
	count, err := h.facade.GetConnectionCount(r.Context())
	return &ConnectionCountReply{Count: json.Uint32(count)}, err
}

func (h *restHandler) peers(r *http.Request, _ map[string]string) (interface{}, error) {
	return h.facade.GetPeers(r.Context())
}

func (h *restHandler) plugins(r *http.Request, _ map[string]string) (interface{}, error) {
	plugins, err := h.facade.ListPlugins(r.Context())
	return &PluginsReply{Plugins: plugins}, err
}

func (h *restHandler) invokeFunction(r *http.Request, _ map[string]string) (interface{}, error) {
	var args InvokeFunctionArgs
	if err := stdjson.NewDecoder(r.Body).Decode(&args); err != nil {
		return nil, facade.ErrInvalidParams.WithData(err.Error())
	}
	return h.facade.InvokeFunction(r.Context(), args.ScriptHash, args.Operation, args.Params)
}

func (h *restHandler) invokeScript(r *http.Request, _ map[string]string) (interface{}, error) {
	var args InvokeScriptArgs
	if err := stdjson.NewDecoder(r.Body).Decode(&args); err != nil {
		return nil, facade.ErrInvalidParams.WithData(err.Error())
	}
	return h.facade.InvokeScript(r.Context(), args.Script, args.Verifying)
}

func (h *restHandler) sendRawTransaction(r *http.Request, vars map[string]string) (interface{}, error) {
	return h.facade.SendRawTransaction(r.Context(), vars["hex"])
}

func (h *restHandler) submitBlock(r *http.Request, vars map[string]string) (interface{}, error) {
	return h.facade.SubmitBlock(r.Context(), vars["hex"])
}

func (h *restHandler) validateAddress(r *http.Request, vars map[string]string) (interface{}, error) {
	return h.facade.ValidateAddress(r.Context(), vars["address"])
}
