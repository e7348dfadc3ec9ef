// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	stdjson "encoding/json"
	"strconv"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/queryvm/api"
	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/script"
)

// Client defines query service client operations. Failed calls return the
// server's *json2.Error, whose code is the facade error code.
type Client interface {
	BestBlockHash(ctx context.Context) (ids.ID, error)
	GetBlockCount(ctx context.Context) (uint64, error)
	// GetBlockByHeight returns the block's canonical bytes
	GetBlockByHeight(ctx context.Context, height uint64) (*chain.Block, error)
	GetBlockByHash(ctx context.Context, blkID ids.ID) (*chain.Block, error)
	// GetBlockVerbose accepts a height or a hash as [key]
	GetBlockVerbose(ctx context.Context, key string) (*facade.VerboseBlock, error)
	GetBlockHash(ctx context.Context, height uint64) (ids.ID, error)
	GetBlockHeaderVerbose(ctx context.Context, key string) (*facade.VerboseHeader, error)
	GetBlockSysFee(ctx context.Context, height uint64) (uint64, error)
	GetContractState(ctx context.Context, address string) (*facade.ContractReply, error)
	GetRawMempool(ctx context.Context, includeUnverified bool) (*facade.MempoolReply, error)
	GetTransaction(ctx context.Context, txID ids.ID) (*chain.Transaction, error)
	GetTransactionVerbose(ctx context.Context, txID ids.ID) (*facade.VerboseTransaction, error)
	// GetStorage returns nil if [key] is unset
	GetStorage(ctx context.Context, address string, key []byte) ([]byte, error)
	GetTransactionHeight(ctx context.Context, txID ids.ID) (uint64, error)
	GetValidators(ctx context.Context) ([]facade.ValidatorReply, error)
	GetVersion(ctx context.Context) (*facade.VersionReply, error)
	GetConnectionCount(ctx context.Context) (int, error)
	GetPeers(ctx context.Context) (*facade.PeersReply, error)
	ListPlugins(ctx context.Context) ([]facade.PluginReply, error)
	InvokeFunction(ctx context.Context, address string, operation string, params ...script.Parameter) (*facade.InvokeReply, error)
	InvokeScript(ctx context.Context, code []byte, verifying ...string) (*facade.InvokeReply, error)
	SendRawTransaction(ctx context.Context, tx *chain.Transaction) (ids.ID, error)
	SubmitBlock(ctx context.Context, blk *chain.Block) (ids.ID, error)
	ValidateAddress(ctx context.Context, address string) (bool, error)
}

// New creates a new client object for the node at [uri].
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri + api.Endpoint)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func method(name string) string {
	return api.ServiceName + "." + name
}

func (cli *client) BestBlockHash(ctx context.Context) (ids.ID, error) {
	resp := new(api.HashReply)
	err := cli.req.SendRequest(ctx, method("getBestBlockHash"), struct{}{}, resp)
	return resp.Hash, err
}

func (cli *client) GetBlockCount(ctx context.Context) (uint64, error) {
	resp := new(api.CountReply)
	err := cli.req.SendRequest(ctx, method("getBlockCount"), struct{}{}, resp)
	return uint64(resp.Count), err
}

func (cli *client) getBlock(ctx context.Context, key stdjson.RawMessage, verbose bool) (*facade.BlockReply, error) {
	resp := new(facade.BlockReply)
	err := cli.req.SendRequest(ctx,
		method("getBlock"),
		&api.KeyArgs{Key: key, Verbose: verbose},
		resp,
	)
	return resp, err
}

func (cli *client) GetBlockByHeight(ctx context.Context, height uint64) (*chain.Block, error) {
	resp, err := cli.getBlock(ctx, heightKey(height), false)
	if err != nil {
		return nil, err
	}
	return parseRaw(resp.Raw, chain.ParseBlock)
}

func (cli *client) GetBlockByHash(ctx context.Context, blkID ids.ID) (*chain.Block, error) {
	resp, err := cli.getBlock(ctx, stringKey(blkID.String()), false)
	if err != nil {
		return nil, err
	}
	return parseRaw(resp.Raw, chain.ParseBlock)
}

func (cli *client) GetBlockVerbose(ctx context.Context, key string) (*facade.VerboseBlock, error) {
	resp, err := cli.getBlock(ctx, stringKey(key), true)
	if err != nil {
		return nil, err
	}
	return resp.Verbose, nil
}

func (cli *client) GetBlockHash(ctx context.Context, height uint64) (ids.ID, error) {
	resp := new(api.HashReply)
	err := cli.req.SendRequest(ctx,
		method("getBlockHash"),
		&api.HeightArgs{Height: heightKey(height)},
		resp,
	)
	return resp.Hash, err
}

func (cli *client) GetBlockHeaderVerbose(ctx context.Context, key string) (*facade.VerboseHeader, error) {
	resp := new(facade.HeaderReply)
	err := cli.req.SendRequest(ctx,
		method("getBlockHeader"),
		&api.KeyArgs{Key: stringKey(key), Verbose: true},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.Verbose, nil
}

func (cli *client) GetBlockSysFee(ctx context.Context, height uint64) (uint64, error) {
	resp := new(api.FeeReply)
	err := cli.req.SendRequest(ctx,
		method("getBlockSysFee"),
		&api.HeightArgs{Height: heightKey(height)},
		resp,
	)
	return uint64(resp.Fee), err
}

func (cli *client) GetContractState(ctx context.Context, address string) (*facade.ContractReply, error) {
	resp := new(facade.ContractReply)
	err := cli.req.SendRequest(ctx,
		method("getContractState"),
		&api.AddressArgs{Address: address},
		resp,
	)
	return resp, err
}

func (cli *client) GetRawMempool(ctx context.Context, includeUnverified bool) (*facade.MempoolReply, error) {
	resp := new(facade.MempoolReply)
	err := cli.req.SendRequest(ctx,
		method("getRawMempool"),
		&api.MempoolArgs{ShouldGetUnverified: includeUnverified},
		resp,
	)
	return resp, err
}

func (cli *client) GetTransaction(ctx context.Context, txID ids.ID) (*chain.Transaction, error) {
	resp := new(facade.TransactionReply)
	err := cli.req.SendRequest(ctx,
		method("getRawTransaction"),
		&api.HashArgs{Hash: txID.String()},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return parseRaw(resp.Raw, chain.ParseTransaction)
}

func (cli *client) GetTransactionVerbose(ctx context.Context, txID ids.ID) (*facade.VerboseTransaction, error) {
	resp := new(facade.TransactionReply)
	err := cli.req.SendRequest(ctx,
		method("getRawTransaction"),
		&api.HashArgs{Hash: txID.String(), Verbose: true},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.Verbose, nil
}

func (cli *client) GetStorage(ctx context.Context, address string, key []byte) ([]byte, error) {
	keyHex, err := formatting.Encode(formatting.HexNC, key)
	if err != nil {
		return nil, err
	}
	resp := new(facade.StorageReply)
	err = cli.req.SendRequest(ctx,
		method("getStorage"),
		&api.StorageArgs{ScriptHash: address, Key: keyHex},
		resp,
	)
	if err != nil || resp.Value == nil {
		return nil, err
	}
	return formatting.Decode(formatting.HexNC, *resp.Value)
}

func (cli *client) GetTransactionHeight(ctx context.Context, txID ids.ID) (uint64, error) {
	resp := new(api.HeightReply)
	err := cli.req.SendRequest(ctx,
		method("getTransactionHeight"),
		&api.HashArgs{Hash: txID.String()},
		resp,
	)
	return uint64(resp.Height), err
}

func (cli *client) GetValidators(ctx context.Context) ([]facade.ValidatorReply, error) {
	resp := new(api.ValidatorsReply)
	err := cli.req.SendRequest(ctx, method("getValidators"), struct{}{}, resp)
	return resp.Validators, err
}

func (cli *client) GetVersion(ctx context.Context) (*facade.VersionReply, error) {
	resp := new(facade.VersionReply)
	err := cli.req.SendRequest(ctx, method("getVersion"), struct{}{}, resp)
	return resp, err
}

func (cli *client) GetConnectionCount(ctx context.Context) (int, error) {
	resp := new(api.ConnectionCountReply)
	err := cli.req.SendRequest(ctx, method("getConnectionCount"), struct{}{}, resp)
	return int(resp.Count), err
}

func (cli *client) GetPeers(ctx context.Context) (*facade.PeersReply, error) {
	resp := new(facade.PeersReply)
	err := cli.req.SendRequest(ctx, method("getPeers"), struct{}{}, resp)
	return resp, err
}

func (cli *client) ListPlugins(ctx context.Context) ([]facade.PluginReply, error) {
	resp := new(api.PluginsReply)
	err := cli.req.SendRequest(ctx, method("listPlugins"), struct{}{}, resp)
	return resp.Plugins, err
}

func (cli *client) InvokeFunction(ctx context.Context, address string, operation string, params ...script.Parameter) (*facade.InvokeReply, error) {
	resp := new(facade.InvokeReply)
	err := cli.req.SendRequest(ctx,
		method("invokeFunction"),
		&api.InvokeFunctionArgs{ScriptHash: address, Operation: operation, Params: params},
		resp,
	)
	return resp, err
}

func (cli *client) InvokeScript(ctx context.Context, code []byte, verifying ...string) (*facade.InvokeReply, error) {
	codeHex, err := formatting.Encode(formatting.HexNC, code)
	if err != nil {
		return nil, err
	}
	resp := new(facade.InvokeReply)
	err = cli.req.SendRequest(ctx,
		method("invokeScript"),
		&api.InvokeScriptArgs{Script: codeHex, Verifying: verifying},
		resp,
	)
	return resp, err
}

func (cli *client) SendRawTransaction(ctx context.Context, tx *chain.Transaction) (ids.ID, error) {
	return cli.relay(ctx, "sendRawTransaction", tx.Bytes())
}

func (cli *client) SubmitBlock(ctx context.Context, blk *chain.Block) (ids.ID, error) {
	return cli.relay(ctx, "submitBlock", blk.Bytes())
}

func (cli *client) relay(ctx context.Context, name string, b []byte) (ids.ID, error) {
	data, err := formatting.Encode(formatting.HexNC, b)
	if err != nil {
		return ids.Empty, err
	}
	resp := new(facade.RelayReply)
	err = cli.req.SendRequest(ctx, method(name), &api.RawArgs{Data: data}, resp)
	return resp.Hash, err
}

func (cli *client) ValidateAddress(ctx context.Context, address string) (bool, error) {
	resp := new(facade.ValidateAddressReply)
	err := cli.req.SendRequest(ctx,
		method("validateAddress"),
		&api.AddressArgs{Address: address},
		resp,
	)
	return resp.IsValid, err
}

func heightKey(height uint64) stdjson.RawMessage {
	return stdjson.RawMessage(strconv.FormatUint(height, 10))
}

func stringKey(s string) stdjson.RawMessage {
	b, _ := stdjson.Marshal(s)
	return b
}

func parseRaw[T any](raw string, parse func([]byte) (T, error)) (T, error) {
	b, err := formatting.Decode(formatting.HexNC, raw)
	if err != nil {
		var zero T
		return zero, err
	}
	return parse(b)
}
