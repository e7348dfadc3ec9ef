// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	stdjson "encoding/json"
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/script"
)

// Service is the JSON-RPC service for the query facade. Every method maps to
// one facade operation.
type Service struct {
	facade  *facade.Facade
	metrics *metrics
	log     log.Logger
}

// KeyArgs selects a block by height (a JSON number or numeric string) or by
// hash.
type KeyArgs struct {
	Key     stdjson.RawMessage `json:"key"`
	Verbose bool               `json:"verbose"`
}

// token returns the key as the facade parses it.
func (a *KeyArgs) token() (string, error) {
	return rawToken(a.Key)
}

func rawToken(raw stdjson.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := stdjson.Unmarshal(raw, &s); err != nil {
			return "", facade.ErrInvalidParams.WithData(err.Error())
		}
		return s, nil
	}
	return string(raw), nil
}

// HeightArgs carries a block height. Negative heights are invalid heights
// rather than malformed requests.
type HeightArgs struct {
	Height stdjson.RawMessage `json:"height"`
}

func (a *HeightArgs) height() (uint64, error) {
	token, err := rawToken(a.Height)
	if err != nil {
		return 0, err
	}
	return parseHeight(token)
}

func parseHeight(token string) (uint64, error) {
	key, err := facade.ParseKey(token)
	switch {
	case err == nil && key.IsHeight():
		return key.Height(), nil
	case errors.Is(err, facade.ErrInvalidHeight):
		return 0, err
	default:
		return 0, facade.ErrInvalidParams.WithData("height must be an integer")
	}
}

type HashArgs struct {
	Hash    string `json:"hash"`
	Verbose bool   `json:"verbose"`
}

type AddressArgs struct {
	Address string `json:"address"`
}

type StorageArgs struct {
	ScriptHash string `json:"scriptHash"`
	Key        string `json:"key"`
}

type MempoolArgs struct {
	ShouldGetUnverified bool `json:"shouldGetUnverified"`
}

type InvokeFunctionArgs struct {
	ScriptHash string             `json:"scriptHash"`
	Operation  string             `json:"operation"`
	Params     []script.Parameter `json:"params"`
}

type InvokeScriptArgs struct {
	Script string `json:"script"`
	// Script hashes that count as witnesses during the run
	Verifying []string `json:"verifying"`
}

// RawArgs carries a hex encoded transaction or block.
type RawArgs struct {
	Data string `json:"data"`
}

type HashReply struct {
	Hash ids.ID `json:"hash"`
}

type CountReply struct {
	Count json.Uint64 `json:"count"`
}

type FeeReply struct {
	Fee json.Uint64 `json:"fee"`
}

type HeightReply struct {
	Height json.Uint64 `json:"height"`
}

type ConnectionCountReply struct {
	Count json.Uint32 `json:"count"`
}

type ValidatorsReply struct {
	Validators []facade.ValidatorReply `json:"validators"`
}

type PluginsReply struct {
	Plugins []facade.PluginReply `json:"plugins"`
}

// done records the call and converts [err] for the wire.
func (s *Service) done(method string, err error) error {
	if err == nil {
		s.metrics.observe(method, nil)
		return nil
	}
	rpcErr := toRPCError(err)
	code := int(rpcErr.Code)
	s.metrics.observe(method, &code)
	s.log.Debug("call failed", "method", method, "code", code, "err", err)
	return rpcErr
}

// GetBestBlockHash returns the hash of the chain head
func (s *Service) GetBestBlockHash(r *http.Request, _ *struct{}, reply *HashReply) error {
	hash, err := s.facade.BestBlockHash(r.Context())
	reply.Hash = hash
	return s.done("getBestBlockHash", err)
}

// GetBlock returns a block by height or hash
func (s *Service) GetBlock(r *http.Request, args *KeyArgs, reply *facade.BlockReply) error {
	token, err := args.token()
	if err != nil {
		return s.done("getBlock", err)
	}
	blk, err := s.facade.GetBlock(r.Context(), token, args.Verbose)
	if err == nil {
		*reply = *blk
	}
	return s.done("getBlock", err)
}

// GetBlockCount returns the number of blocks in the chain
func (s *Service) GetBlockCount(r *http.Request, _ *struct{}, reply *CountReply) error {
	count, err := s.facade.GetBlockCount(r.Context())
	reply.Count = json.Uint64(count)
	return s.done("getBlockCount", err)
}

func (s *Service) GetBlockHash(r *http.Request, args *HeightArgs, reply *HashReply) error {
	height, err := args.height()
	if err != nil {
		return s.done("getBlockHash", err)
	}
	hash, err := s.facade.GetBlockHash(r.Context(), height)
	reply.Hash = hash
	return s.done("getBlockHash", err)
}

func (s *Service) GetBlockHeader(r *http.Request, args *KeyArgs, reply *facade.HeaderReply) error {
	token, err := args.token()
	if err != nil {
		return s.done("getBlockHeader", err)
	}
	hdr, err := s.facade.GetBlockHeader(r.Context(), token, args.Verbose)
	if err == nil {
		*reply = *hdr
	}
	return s.done("getBlockHeader", err)
}

// GetBlockSysFee returns the system fees paid up to and including a height
func (s *Service) GetBlockSysFee(r *http.Request, args *HeightArgs, reply *FeeReply) error {
	height, err := args.height()
	if err != nil {
		return s.done("getBlockSysFee", err)
	}
	fee, err := s.facade.GetBlockSysFee(r.Context(), height)
	reply.Fee = json.Uint64(fee)
	return s.done("getBlockSysFee", err)
}

func (s *Service) GetContractState(r *http.Request, args *AddressArgs, reply *facade.ContractReply) error {
	contract, err := s.facade.GetContractState(r.Context(), args.Address)
	if err == nil {
		*reply = *contract
	}
	return s.done("getContractState", err)
}

func (s *Service) GetRawMempool(r *http.Request, args *MempoolArgs, reply *facade.MempoolReply) error {
	pool, err := s.facade.GetRawMempool(r.Context(), args.ShouldGetUnverified)
	if err == nil {
		*reply = *pool
	}
	return s.done("getRawMempool", err)
}

func (s *Service) GetRawTransaction(r *http.Request, args *HashArgs, reply *facade.TransactionReply) error {
	tx, err := s.facade.GetRawTransaction(r.Context(), args.Hash, args.Verbose)
	if err == nil {
		*reply = *tx
	}
	return s.done("getRawTransaction", err)
}

func (s *Service) GetStorage(r *http.Request, args *StorageArgs, reply *facade.StorageReply) error {
	value, err := s.facade.GetStorage(r.Context(), args.ScriptHash, args.Key)
	if err == nil {
		*reply = *value
	}
	return s.done("getStorage", err)
}

func (s *Service) GetTransactionHeight(r *http.Request, args *HashArgs, reply *HeightReply) error {
	height, err := s.facade.GetTransactionHeight(r.Context(), args.Hash)
	reply.Height = json.Uint64(height)
	return s.done("getTransactionHeight", err)
}

func (s *Service) GetValidators(r *http.Request, _ *struct{}, reply *ValidatorsReply) error {
	validators, err := s.facade.GetValidators(r.Context())
	reply.Validators = validators
	return s.done("getValidators", err)
}

func (s *Service) GetVersion(r *http.Request, _ *struct{}, reply *facade.VersionReply) error {
	version, err := s.facade.GetVersion(r.Context())
	if err == nil {
		*reply = *version
	}
	return s.done("getVersion", err)
}

func (s *Service) GetConnectionCount(r *http.Request, _ *struct{}, reply *ConnectionCountReply) error {
	count, err := s.facade.GetConnectionCount(r.Context())
	reply.Count = json.Uint32(count)
	return s.done("getConnectionCount", err)
}

func (s *Service) GetPeers(r *http.Request, _ *struct{}, reply *facade.PeersReply) error {
	peers, err := s.facade.GetPeers(r.Context())
	if err == nil {
		*reply = *peers
	}
	return s.done("getPeers", err)
}

func (s *Service) ListPlugins(r *http.Request, _ *struct{}, reply *PluginsReply) error {
	plugins, err := s.facade.ListPlugins(r.Context())
	reply.Plugins = plugins
	return s.done("listPlugins", err)
}

// InvokeFunction calls a contract operation without persisting anything
func (s *Service) InvokeFunction(r *http.Request, args *InvokeFunctionArgs, reply *facade.InvokeReply) error {
	result, err := s.facade.InvokeFunction(r.Context(), args.ScriptHash, args.Operation, args.Params)
	if err == nil {
		*reply = *result
	}
	return s.done("invokeFunction", err)
}

// InvokeScript runs a hex encoded script without persisting anything
func (s *Service) InvokeScript(r *http.Request, args *InvokeScriptArgs, reply *facade.InvokeReply) error {
	result, err := s.facade.InvokeScript(r.Context(), args.Script, args.Verifying)
	if err == nil {
		*reply = *result
	}
	return s.done("invokeScript", err)
}

func (s *Service) SendRawTransaction(r *http.Request, args *RawArgs, reply *facade.RelayReply) error {
	result, err := s.facade.SendRawTransaction(r.Context(), args.Data)
	if err == nil {
		*reply = *result
	}
	return s.done("sendRawTransaction", err)
}

func (s *Service) SubmitBlock(r *http.Request, args *RawArgs, reply *facade.RelayReply) error {
	result, err := s.facade.SubmitBlock(r.Context(), args.Data)
	if err == nil {
		*reply = *result
	}
	return s.done("submitBlock", err)
}

func (s *Service) ValidateAddress(r *http.Request, args *AddressArgs, reply *facade.ValidateAddressReply) error {
	result, err := s.facade.ValidateAddress(r.Context(), args.Address)
	if err == nil {
		*reply = *result
	}
	return s.done("validateAddress", err)
}
