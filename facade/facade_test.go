// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/memnode"
	"github.com/ava-labs/queryvm/script"
)

const testHRP = "local"

var testVerification = []byte{byte(script.PUSHT)}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	facade *facade.Facade
	node   *memnode.Node
}

func newTestEnv(t *testing.T, config facade.Config, nodeConfig memnode.Config) *testEnv {
	genesis, err := memnode.DefaultGenesis()
	require.NoError(t, err)
	node, err := memnode.New(nodeConfig, genesis, memdb.New(), prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	node.Clock().Set(genesis.Timestamp.Add(time.Minute))

	f, err := facade.New(config, node.Backend(), nil)
	require.NoError(t, err)
	return &testEnv{facade: f, node: node}
}

func newDefaultEnv(t *testing.T) *testEnv {
	return newTestEnv(t, facade.DefaultConfig(), memnode.Config{})
}

func newTestTx(t *testing.T, nonce uint32) *chain.Transaction {
	signer := chain.ScriptHash(testVerification)
	tx := &chain.Transaction{
		Nonce:           nonce,
		Sender:          signer,
		SysFee:          5,
		ValidUntilBlock: 100,
		Script:          []byte{byte(script.PUSHT)},
		Signers:         []ids.ShortID{signer},
		Witnesses:       []chain.Witness{{Invocation: []byte{0}, Verification: testVerification}},
	}
	require.NoError(t, tx.Initialize())
	return tx
}

func hexOf(t *testing.T, b []byte) string {
	s, err := formatting.Encode(formatting.HexNC, b)
	require.NoError(t, err)
	return s
}

// buildBlocks relays one transaction per block and returns them.
func (e *testEnv) buildBlocks(t *testing.T, n int) []*chain.Transaction {
	ctx := context.Background()
	txs := make([]*chain.Transaction, n)
	for i := range txs {
		txs[i] = newTestTx(t, uint32(1000+i))
		_, err := e.facade.SendRawTransaction(ctx, hexOf(t, txs[i].Bytes()))
		require.NoError(t, err)
		_, err = e.node.BuildBlock(ctx)
		require.NoError(t, err)
	}
	return txs
}

func requireCode(t *testing.T, err error, code facade.Code) {
	t.Helper()
	e, ok := facade.AsError(err)
	require.True(t, ok, "expected a facade error but got %v", err)
	require.Equal(t, code, e.Code)
}

func TestNewVerifiesConfig(t *testing.T) {
	require := require.New(t)

	env := newDefaultEnv(t)
	_, err := facade.New(facade.Config{AddressHRP: testHRP}, env.node.Backend(), nil)
	require.Error(err)
	_, err = facade.New(facade.Config{MaxGasInvoke: 1}, env.node.Backend(), nil)
	require.Error(err)
	_, err = facade.New(facade.DefaultConfig(), facade.Backend{}, nil)
	require.Error(err)
}

func TestResolveHeights(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	env.buildBlocks(t, 2)

	count, err := env.facade.GetBlockCount(ctx)
	require.NoError(err)
	require.Equal(uint64(3), count)

	best, err := env.facade.BestBlockHash(ctx)
	require.NoError(err)

	for h := uint64(0); h <= 2; h++ {
		hash, err := env.facade.GetBlockHash(ctx, h)
		require.NoError(err)
		blk, err := env.node.Store().GetBlock(ctx, hash)
		require.NoError(err)
		require.Equal(h, blk.Height())
	}
	head, err := env.facade.GetBlockHash(ctx, 2)
	require.NoError(err)
	require.Equal(best, head)

	_, err = env.facade.GetBlockHash(ctx, 3)
	require.ErrorIs(err, facade.ErrInvalidHeight)
	_, err = env.facade.GetBlock(ctx, "3", false)
	requireCode(t, err, facade.CodeInvalidHeight)
	_, err = env.facade.GetBlockHeader(ctx, "3", true)
	requireCode(t, err, facade.CodeInvalidHeight)
	_, err = env.facade.GetBlock(ctx, "-1", true)
	requireCode(t, err, facade.CodeInvalidHeight)
	_, err = env.facade.GetBlock(ctx, "not a hash", true)
	requireCode(t, err, facade.CodeMalformedHash)
	_, err = env.facade.GetBlock(ctx, ids.ID{0xff}.String(), true)
	requireCode(t, err, facade.CodeNotFound)
	_, err = env.facade.GetBlockHeader(ctx, ids.ID{0xff}.String(), false)
	requireCode(t, err, facade.CodeNotFound)
}

func TestCompactRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	txs := env.buildBlocks(t, 1)
	blkID, err := env.facade.GetBlockHash(ctx, 1)
	require.NoError(err)
	blk, err := env.node.Store().GetBlock(ctx, blkID)
	require.NoError(err)

	for _, token := range []string{"1", blkID.String()} {
		reply, err := env.facade.GetBlock(ctx, token, false)
		require.NoError(err)
		require.Nil(reply.Verbose)
		b, err := formatting.Decode(formatting.HexNC, reply.Raw)
		require.NoError(err)
		require.Equal(blk.Bytes(), b)
	}

	hdr, err := env.facade.GetBlockHeader(ctx, "1", false)
	require.NoError(err)
	b, err := formatting.Decode(formatting.HexNC, hdr.Raw)
	require.NoError(err)
	require.Equal(blk.Header().Bytes(), b)

	tx, err := env.facade.GetRawTransaction(ctx, txs[0].ID().String(), false)
	require.NoError(err)
	b, err = formatting.Decode(formatting.HexNC, tx.Raw)
	require.NoError(err)
	require.Equal(txs[0].Bytes(), b)
}

func TestVerboseDerivedFields(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	txs := env.buildBlocks(t, 2)

	hashes := make([]ids.ID, 3)
	for h := range hashes {
		var err error
		hashes[h], err = env.facade.GetBlockHash(ctx, uint64(h))
		require.NoError(err)
	}

	for h := 0; h < 3; h++ {
		blk, err := env.facade.GetBlock(ctx, hashes[h].String(), true)
		require.NoError(err)
		require.Equal(uint64(2-h+1), uint64(blk.Verbose.Confirmations))
		require.Equal(uint64(h), uint64(blk.Verbose.Index))
		require.Equal(hashes[h], blk.Verbose.Hash)
		if h < 2 {
			require.NotNil(blk.Verbose.NextBlockHash)
			require.Equal(hashes[h+1], *blk.Verbose.NextBlockHash)
		} else {
			require.Nil(blk.Verbose.NextBlockHash)
		}

		hdr, err := env.facade.GetBlockHeader(ctx, hashes[h].String(), true)
		require.NoError(err)
		require.Equal(blk.Verbose.Confirmations, hdr.Verbose.Confirmations)
		require.Equal(blk.Verbose.NextBlockHash, hdr.Verbose.NextBlockHash)
	}

	blk, err := env.facade.GetBlock(ctx, "1", true)
	require.NoError(err)
	require.Len(blk.Verbose.Tx, 1)
	require.Equal(txs[0].ID(), blk.Verbose.Tx[0].Hash)
	// transactions embedded in a block carry no block fields
	require.Nil(blk.Verbose.Tx[0].Confirmations)

	sender, err := chain.FormatAddress(testHRP, txs[0].Sender)
	require.NoError(err)
	require.Equal(sender, blk.Verbose.Tx[0].Sender)
}

func TestVerboseTransaction(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	confirmed := env.buildBlocks(t, 2)[0]

	reply, err := env.facade.GetRawTransaction(ctx, confirmed.ID().String(), true)
	require.NoError(err)
	v := reply.Verbose
	require.NotNil(v.BlockHash)
	blkHash, err := env.facade.GetBlockHash(ctx, 1)
	require.NoError(err)
	require.Equal(blkHash, *v.BlockHash)
	require.Equal(uint64(2), uint64(*v.Confirmations))
	require.NotNil(v.BlockTime)

	height, err := env.facade.GetTransactionHeight(ctx, confirmed.ID().String())
	require.NoError(err)
	require.Equal(uint64(1), height)

	pooled := newTestTx(t, 1)
	_, err = env.facade.SendRawTransaction(ctx, hexOf(t, pooled.Bytes()))
	require.NoError(err)

	reply, err = env.facade.GetRawTransaction(ctx, pooled.ID().String(), true)
	require.NoError(err)
	require.Nil(reply.Verbose.BlockHash)
	require.Nil(reply.Verbose.Confirmations)
	require.Nil(reply.Verbose.BlockTime)

	_, err = env.facade.GetTransactionHeight(ctx, pooled.ID().String())
	requireCode(t, err, facade.CodeNotFound)
	_, err = env.facade.GetRawTransaction(ctx, ids.ID{7}.String(), true)
	requireCode(t, err, facade.CodeNotFound)
	_, err = env.facade.GetRawTransaction(ctx, "xyz", true)
	requireCode(t, err, facade.CodeMalformedHash)
	_, err = env.facade.GetTransactionHeight(ctx, "xyz")
	requireCode(t, err, facade.CodeMalformedHash)
}

// trailingHeadState reports a fixed head, as a reader that raced block
// acceptance would see it.
type trailingHeadState struct {
	facade.State
	headID     ids.ID
	headHeight uint64
}

func (s *trailingHeadState) LastAccepted(context.Context) (ids.ID, uint64, error) {
	return s.headID, s.headHeight, nil
}

func TestConfirmationsWhileAccepting(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newTestEnv(t, facade.DefaultConfig(), memnode.Config{MaxBlockTxs: 1})
	headID, headHeight, err := env.node.Store().LastAccepted(ctx)
	require.NoError(err)
	backend := env.node.Backend()
	backend.State = &trailingHeadState{State: backend.State, headID: headID, headHeight: headHeight}
	f, err := facade.New(facade.DefaultConfig(), backend, nil)
	require.NoError(err)

	txs := env.buildBlocks(t, 2)
	for _, tx := range txs {
		reply, err := f.GetRawTransaction(ctx, tx.ID().String(), true)
		require.NoError(err)
		require.Equal(uint64(1), uint64(*reply.Verbose.Confirmations))
	}

	blkID, err := env.node.Store().GetBlockIDAtHeight(ctx, 2)
	require.NoError(err)
	blk, err := f.GetBlock(ctx, blkID.String(), true)
	require.NoError(err)
	require.Equal(uint64(1), uint64(blk.Verbose.Confirmations))
	hdr, err := f.GetBlockHeader(ctx, blkID.String(), true)
	require.NoError(err)
	require.Equal(uint64(1), uint64(hdr.Verbose.Confirmations))
}

func TestGetRawMempool(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	txs := make([]*chain.Transaction, 4)
	for i := range txs {
		txs[i] = newTestTx(t, uint32(i))
		_, err := env.facade.SendRawTransaction(ctx, hexOf(t, txs[i].Bytes()))
		require.NoError(err)
	}

	reply, err := env.facade.GetRawMempool(ctx, false)
	require.NoError(err)
	require.False(reply.Partitioned)
	require.Len(reply.Verified, 4)

	// the head moved, so everything pooled awaits re-verification
	env.node.Mempool().Accepted(nil)
	require.Equal(facade.RelaySucceeded, env.node.SubmitTransaction(ctx, newTestTx(t, 99)))

	reply, err = env.facade.GetRawMempool(ctx, true)
	require.NoError(err)
	require.True(reply.Partitioned)
	require.Zero(uint64(reply.Height))
	require.Len(reply.Verified, 1)
	require.Len(reply.Unverified, 4)

	seen := make(map[ids.ID]struct{})
	for _, id := range append(reply.Verified, reply.Unverified...) {
		_, dup := seen[id]
		require.False(dup)
		seen[id] = struct{}{}
	}
	require.Len(seen, env.node.Mempool().Len())
}

func TestRelay(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newTestEnv(t, facade.DefaultConfig(), memnode.Config{MempoolSize: 2})
	tx := newTestTx(t, 1)

	reply, err := env.facade.SendRawTransaction(ctx, hexOf(t, tx.Bytes()))
	require.NoError(err)
	require.Equal(tx.ID(), reply.Hash)

	_, err = env.facade.SendRawTransaction(ctx, hexOf(t, tx.Bytes()))
	requireCode(t, err, facade.CodeRelayDuplicate)

	_, err = env.node.BuildBlock(ctx)
	require.NoError(err)
	// already on chain
	_, err = env.facade.SendRawTransaction(ctx, hexOf(t, tx.Bytes()))
	requireCode(t, err, facade.CodeRelayDuplicate)

	require.Equal(facade.RelaySucceeded, env.node.SubmitTransaction(ctx, newTestTx(t, 2)))
	require.Equal(facade.RelaySucceeded, env.node.SubmitTransaction(ctx, newTestTx(t, 3)))
	_, err = env.facade.SendRawTransaction(ctx, hexOf(t, newTestTx(t, 4).Bytes()))
	requireCode(t, err, facade.CodeRelayPoolFull)

	_, err = env.facade.SendRawTransaction(ctx, "0xzz")
	requireCode(t, err, facade.CodeInvalidParams)
	_, err = env.facade.SendRawTransaction(ctx, "0x0102")
	requireCode(t, err, facade.CodeInvalidParams)
}

func TestSubmitBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	headID, err := env.facade.BestBlockHash(ctx)
	require.NoError(err)
	head, err := env.node.Store().GetBlock(ctx, headID)
	require.NoError(err)

	blk, err := chain.NewBlock(headID, 1, head.Timestamp().Add(time.Second), ids.ShortID{}, []chain.Transaction{*newTestTx(t, 1)})
	require.NoError(err)

	reply, err := env.facade.SubmitBlock(ctx, hexOf(t, blk.Bytes()))
	require.NoError(err)
	require.Equal(blk.ID(), reply.Hash)

	best, err := env.facade.BestBlockHash(ctx)
	require.NoError(err)
	require.Equal(blk.ID(), best)

	_, err = env.facade.SubmitBlock(ctx, hexOf(t, blk.Bytes()))
	requireCode(t, err, facade.CodeRelayDuplicate)

	orphan, err := chain.NewBlock(ids.ID{3}, 2, head.Timestamp().Add(time.Minute), ids.ShortID{}, nil)
	require.NoError(err)
	_, err = env.facade.SubmitBlock(ctx, hexOf(t, orphan.Bytes()))
	requireCode(t, err, facade.CodeRelayUnverifiable)

	_, err = env.facade.SubmitBlock(ctx, "0x00")
	requireCode(t, err, facade.CodeInvalidParams)
}

func TestInvokeFunction(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	token, err := memnode.TokenScript()
	require.NoError(err)
	tokenHash := chain.ScriptHash(token)
	tokenAddr, err := chain.FormatAddress(testHRP, tokenHash)
	require.NoError(err)

	for _, address := range []string{tokenAddr, tokenHash.String()} {
		reply, err := env.facade.InvokeFunction(ctx, address, "name", nil)
		require.NoError(err)
		require.Equal(script.HALT, reply.State, reply.Exception)
		require.Positive(uint64(reply.GasConsumed))
		require.Equal([]script.Parameter{{Type: script.ByteArrayType, Value: []byte("Token")}}, reply.Stack.Items)
	}

	reply, err := env.facade.InvokeFunction(ctx, tokenAddr, "totalSupply", []script.Parameter{
		{Type: script.IntegerType, Value: big.NewInt(1)},
	})
	require.NoError(err)
	require.Equal(script.HALT, reply.State, reply.Exception)
	require.Len(reply.Stack.Items, 1)

	_, err = env.facade.InvokeFunction(ctx, "bogus", "name", nil)
	requireCode(t, err, facade.CodeMalformedAddress)

	reply, err = env.facade.InvokeFunction(ctx, ids.ShortID{0xee}.String(), "name", nil)
	require.NoError(err)
	require.Equal(script.FAULT, reply.State)
}

func TestInvokeScriptGasCeiling(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	const ceiling = 500
	config := facade.DefaultConfig()
	config.MaxGasInvoke = ceiling
	env := newTestEnv(t, config, memnode.Config{})

	loop, err := script.NewBuilder().
		EmitPushInt(1).
		Emit(script.DROP).
		EmitJump(script.JMP, -5).
		Script()
	require.NoError(err)

	reply, err := env.facade.InvokeScript(ctx, hexOf(t, loop), nil)
	require.NoError(err)
	require.Equal(script.FAULT, reply.State)
	require.LessOrEqual(uint64(reply.GasConsumed), uint64(ceiling))
	require.Positive(uint64(reply.GasConsumed))
	require.Equal(hexOf(t, loop), reply.Script)
}

func TestInvokeScriptOverride(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	owner := memnode.GenesisOwner
	check, err := script.NewBuilder().
		EmitPushBytes(owner[:]).
		EmitSyscall(script.CheckWitness).
		Script()
	require.NoError(err)

	reply, err := env.facade.InvokeScript(ctx, hexOf(t, check), nil)
	require.NoError(err)
	require.Equal([]script.Parameter{{Type: script.BooleanType, Value: false}}, reply.Stack.Items)

	ownerAddr, err := chain.FormatAddress(testHRP, owner)
	require.NoError(err)
	reply, err = env.facade.InvokeScript(ctx, hexOf(t, check), []string{ownerAddr})
	require.NoError(err)
	require.Equal([]script.Parameter{{Type: script.BooleanType, Value: true}}, reply.Stack.Items)

	_, err = env.facade.InvokeScript(ctx, hexOf(t, check), []string{"nope"})
	requireCode(t, err, facade.CodeMalformedAddress)
	_, err = env.facade.InvokeScript(ctx, "0x", nil)
	requireCode(t, err, facade.CodeInvalidScript)
	_, err = env.facade.InvokeScript(ctx, "not hex", nil)
	requireCode(t, err, facade.CodeInvalidScript)
}

func TestInvokeScriptRecursiveStack(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	code, err := script.NewBuilder().
		EmitPushInt(0).
		Emit(script.PACK).
		Emit(script.DUP).
		Emit(script.DUP).
		Emit(script.APPEND).
		Script()
	require.NoError(err)

	reply, err := env.facade.InvokeScript(ctx, hexOf(t, code), nil)
	require.NoError(err)
	require.Equal(script.HALT, reply.State)
	require.Equal(facade.RecursiveReferenceMarker, reply.Stack.Err)
	require.Positive(uint64(reply.GasConsumed))
}

func TestInvokeScriptSharedArrays(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	b := script.NewBuilder().Emit(script.PUSHNULL)
	for i := 0; i < 30; i++ {
		b.Emit(script.DUP).EmitPushInt(2).Emit(script.PACK)
	}
	code, err := b.Script()
	require.NoError(err)

	start := time.Now()
	reply, err := env.facade.InvokeScript(ctx, hexOf(t, code), nil)
	require.NoError(err)
	require.Less(time.Since(start), 5*time.Second)
	require.Equal(script.HALT, reply.State)
	require.Equal(facade.ResultTooLargeMarker, reply.Stack.Err)
	require.Empty(reply.Stack.Items)
}

func TestContractAndStorage(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	token, err := memnode.TokenScript()
	require.NoError(err)
	tokenHash := chain.ScriptHash(token)

	contract, err := env.facade.GetContractState(ctx, tokenHash.String())
	require.NoError(err)
	require.Equal(tokenHash, contract.Hash)
	require.Equal("Token", contract.Manifest.Name)
	require.Equal(hexOf(t, token), contract.Script)

	_, err = env.facade.GetContractState(ctx, ids.ShortID{1}.String())
	requireCode(t, err, facade.CodeNotFound)
	_, err = env.facade.GetContractState(ctx, "???")
	requireCode(t, err, facade.CodeMalformedAddress)

	value, err := env.facade.GetStorage(ctx, contract.Address, hexOf(t, []byte(memnode.TokenSupplyKey)))
	require.NoError(err)
	require.NotNil(value.Value)
	require.Equal(hexOf(t, big.NewInt(100_000_000).Bytes()), *value.Value)

	value, err = env.facade.GetStorage(ctx, contract.Address, hexOf(t, []byte("absent")))
	require.NoError(err)
	require.Nil(value.Value)

	_, err = env.facade.GetStorage(ctx, contract.Address, "nothex")
	requireCode(t, err, facade.CodeInvalidParams)
	_, err = env.facade.GetStorage(ctx, "???", "0x00")
	requireCode(t, err, facade.CodeMalformedAddress)
}

func TestBlockSysFee(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	env.buildBlocks(t, 2)

	fee, err := env.facade.GetBlockSysFee(ctx, 0)
	require.NoError(err)
	require.Zero(fee)
	fee, err = env.facade.GetBlockSysFee(ctx, 2)
	require.NoError(err)
	require.Equal(uint64(10), fee)
	_, err = env.facade.GetBlockSysFee(ctx, 3)
	requireCode(t, err, facade.CodeInvalidHeight)
}

func TestNodeQueries(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newTestEnv(t, facade.DefaultConfig(), memnode.Config{
		ValidatorsCount: 2,
		SeedPeers:       []string{"127.0.0.1:9651", "127.0.0.2:9651"},
		NodeInfo:        facade.NodeInfo{TCPPort: 9651, WSPort: 9652, Nonce: 42, UserAgent: "/queryvm:test/"},
		Extensions: []facade.Extension{
			{Name: "StateHistory", Version: "1.0.0"},
			{Name: "ApplicationLogs", Version: "1.1.0", Interfaces: []string{"IPersistencePlugin"}},
		},
	})
	require.NoError(env.node.Network().Connected("127.0.0.2:9651"))

	validators, err := env.facade.GetValidators(ctx)
	require.NoError(err)
	require.Len(validators, 3)
	active := 0
	for _, v := range validators {
		if v.Active {
			active++
		}
	}
	require.Equal(2, active)
	require.True(validators[0].Active)
	require.Equal(uint64(3_000), uint64(validators[0].Votes))

	version, err := env.facade.GetVersion(ctx)
	require.NoError(err)
	require.Equal(uint32(42), uint32(version.Nonce))
	require.Equal("/queryvm:test/", version.UserAgent)

	count, err := env.facade.GetConnectionCount(ctx)
	require.NoError(err)
	require.Equal(1, count)

	peers, err := env.facade.GetPeers(ctx)
	require.NoError(err)
	require.Len(peers.Connected, 1)
	require.Len(peers.Unconnected, 1)
	require.NotNil(peers.Bad)
	require.Empty(peers.Bad)

	plugins, err := env.facade.ListPlugins(ctx)
	require.NoError(err)
	require.Len(plugins, 2)
	require.Equal("ApplicationLogs", plugins[0].Name)
	require.Equal([]string{}, plugins[1].Interfaces)
}

func TestValidateAddress(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	addr, err := chain.FormatAddress(testHRP, ids.ShortID{5})
	require.NoError(err)
	other, err := chain.FormatAddress("fuji", ids.ShortID{5})
	require.NoError(err)

	for address, valid := range map[string]bool{
		addr:                    true,
		other:                   false,
		"":                      false,
		ids.ShortID{5}.String(): false,
	} {
		reply, err := env.facade.ValidateAddress(ctx, address)
		require.NoError(err)
		require.Equal(valid, reply.IsValid, address)
		require.Equal(address, reply.Address)
	}
}

func TestConcurrentQueries(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	env := newDefaultEnv(t)
	env.buildBlocks(t, 3)

	raw := make([]string, 16)
	for i := range raw {
		raw[i] = hexOf(t, newTestTx(t, uint32(i)).Bytes())
	}

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 3*len(raw))
	)
	for i := range raw {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := env.facade.GetBlock(ctx, "2", i%2 == 0); err != nil {
				errs <- err
			}
			if _, err := env.facade.GetRawMempool(ctx, true); err != nil {
				errs <- err
			}
			if _, err := env.facade.SendRawTransaction(ctx, raw[i]); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}
	require.Equal(16, env.node.Mempool().Len())
}
