// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/queryvm/api"
	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/client"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/memnode"
	"github.com/ava-labs/queryvm/script"
)

func newTestClient(t *testing.T, config memnode.Config) (client.Client, *memnode.Node) {
	genesis, err := memnode.DefaultGenesis()
	require.NoError(t, err)
	node, err := memnode.New(config, genesis, memdb.New(), prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	f, err := facade.New(facade.DefaultConfig(), node.Backend(), nil)
	require.NoError(t, err)
	handler, err := api.NewHandler(f, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(api.Endpoint, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return client.New(server.URL), node
}

func requireCode(t *testing.T, err error, code facade.Code) {
	t.Helper()
	var rpcErr *json2.Error
	require.True(t, errors.As(err, &rpcErr), "expected a JSON-RPC error but got %v", err)
	require.Equal(t, json2.ErrorCode(code), rpcErr.Code)
}

func TestClientBlocks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cli, node := newTestClient(t, memnode.Config{})
	headID, _, err := node.Store().LastAccepted(ctx)
	require.NoError(err)

	best, err := cli.BestBlockHash(ctx)
	require.NoError(err)
	require.Equal(headID, best)

	count, err := cli.GetBlockCount(ctx)
	require.NoError(err)
	require.Equal(uint64(1), count)

	blk, err := cli.GetBlockByHeight(ctx, 0)
	require.NoError(err)
	require.Equal(headID, blk.ID())
	blk, err = cli.GetBlockByHash(ctx, headID)
	require.NoError(err)
	require.Equal(headID, blk.ID())

	verbose, err := cli.GetBlockVerbose(ctx, "0")
	require.NoError(err)
	require.Equal(headID, verbose.Hash)
	require.Empty(verbose.Tx)

	hdr, err := cli.GetBlockHeaderVerbose(ctx, headID.String())
	require.NoError(err)
	require.Equal(uint64(1), uint64(hdr.Confirmations))

	_, err = cli.GetBlockByHeight(ctx, 1)
	requireCode(t, err, facade.CodeInvalidHeight)
	_, err = cli.GetBlockHash(ctx, 1)
	requireCode(t, err, facade.CodeInvalidHeight)
	_, err = cli.GetBlockByHash(ctx, ids.ID{1})
	requireCode(t, err, facade.CodeNotFound)
	_, err = cli.GetBlockVerbose(ctx, "nope")
	requireCode(t, err, facade.CodeMalformedHash)
}

func TestClientTransactions(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cli, node := newTestClient(t, memnode.Config{})
	verification := []byte{byte(script.PUSHT)}
	signer := chain.ScriptHash(verification)
	tx := &chain.Transaction{
		Sender:          signer,
		SysFee:          7,
		ValidUntilBlock: 10,
		Script:          []byte{byte(script.PUSHT)},
		Signers:         []ids.ShortID{signer},
		Witnesses:       []chain.Witness{{Verification: verification}},
	}
	require.NoError(tx.Initialize())

	txID, err := cli.SendRawTransaction(ctx, tx)
	require.NoError(err)
	require.Equal(tx.ID(), txID)
	_, err = cli.SendRawTransaction(ctx, tx)
	requireCode(t, err, facade.CodeRelayDuplicate)

	pool, err := cli.GetRawMempool(ctx, false)
	require.NoError(err)
	require.Equal([]ids.ID{txID}, pool.Verified)

	_, err = cli.GetTransactionHeight(ctx, txID)
	requireCode(t, err, facade.CodeNotFound)

	blk, err := node.BuildBlock(ctx)
	require.NoError(err)

	got, err := cli.GetTransaction(ctx, txID)
	require.NoError(err)
	require.Equal(tx.Bytes(), got.Bytes())

	verbose, err := cli.GetTransactionVerbose(ctx, txID)
	require.NoError(err)
	require.NotNil(verbose.BlockHash)
	require.Equal(blk.ID(), *verbose.BlockHash)

	height, err := cli.GetTransactionHeight(ctx, txID)
	require.NoError(err)
	require.Equal(uint64(1), height)

	fee, err := cli.GetBlockSysFee(ctx, 1)
	require.NoError(err)
	require.Equal(uint64(7), fee)

	// submitting an accepted block again is a duplicate
	_, err = cli.SubmitBlock(ctx, blk)
	requireCode(t, err, facade.CodeRelayDuplicate)
}

func TestClientContracts(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cli, _ := newTestClient(t, memnode.Config{})
	token, err := memnode.TokenScript()
	require.NoError(err)
	tokenHash := chain.ScriptHash(token)

	contract, err := cli.GetContractState(ctx, tokenHash.String())
	require.NoError(err)
	require.Equal("Token", contract.Manifest.Name)

	valid, err := cli.ValidateAddress(ctx, contract.Address)
	require.NoError(err)
	require.True(valid)

	supply, err := cli.GetStorage(ctx, contract.Address, []byte(memnode.TokenSupplyKey))
	require.NoError(err)
	require.NotEmpty(supply)
	missing, err := cli.GetStorage(ctx, contract.Address, []byte("missing"))
	require.NoError(err)
	require.Nil(missing)

	reply, err := cli.InvokeFunction(ctx, contract.Address, "name")
	require.NoError(err)
	require.Equal(script.HALT, reply.State)
	require.Equal([]script.Parameter{{Type: script.ByteArrayType, Value: []byte("Token")}}, reply.Stack.Items)

	owner, err := chain.FormatAddress(facade.DefaultAddressHRP, memnode.GenesisOwner)
	require.NoError(err)
	code, err := script.NewBuilder().
		EmitPushBytes(memnode.GenesisOwner[:]).
		EmitSyscall(script.CheckWitness).
		Script()
	require.NoError(err)
	reply, err = cli.InvokeScript(ctx, code, owner)
	require.NoError(err)
	require.Equal([]script.Parameter{{Type: script.BooleanType, Value: true}}, reply.Stack.Items)

	_, err = cli.InvokeScript(ctx, nil)
	requireCode(t, err, facade.CodeInvalidScript)
	_, err = cli.GetContractState(ctx, ids.ShortID{9}.String())
	requireCode(t, err, facade.CodeNotFound)
}

func TestClientNode(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cli, _ := newTestClient(t, memnode.Config{
		SeedPeers:  []string{"10.0.0.1:9651"},
		NodeInfo:   facade.NodeInfo{TCPPort: 9651, UserAgent: "/queryvm/"},
		Extensions: []facade.Extension{{Name: "RpcServer", Version: "1.0.0"}},
	})

	validators, err := cli.GetValidators(ctx)
	require.NoError(err)
	require.Len(validators, 3)

	version, err := cli.GetVersion(ctx)
	require.NoError(err)
	require.Equal("/queryvm/", version.UserAgent)
	require.Equal(uint16(9651), uint16(version.TCPPort))

	count, err := cli.GetConnectionCount(ctx)
	require.NoError(err)
	require.Zero(count)

	peers, err := cli.GetPeers(ctx)
	require.NoError(err)
	require.Equal([]facade.PeerReply{{Address: "10.0.0.1", Port: 9651}}, peers.Unconnected)
	require.Empty(peers.Connected)
	require.Empty(peers.Bad)

	plugins, err := cli.ListPlugins(ctx)
	require.NoError(err)
	require.Equal([]facade.PluginReply{{Name: "RpcServer", Version: "1.0.0", Interfaces: []string{}}}, plugins)
}
