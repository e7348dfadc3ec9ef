// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
)

const defaultMaxBlockTxs = 512

var (
	// ErrNoPendingTxs is returned by BuildBlock when the mempool is empty
	ErrNoPendingTxs = errors.New("no pending transactions")

	errBadGenesis = errors.New("genesis block must be at height 0")

	_ relayer = (*Node)(nil)
)

type Config struct {
	MempoolSize     int
	ValidatorsCount int
	MaxBlockTxs     int
	// Transactions sent by these script hashes are rejected by policy
	BlockedSenders []ids.ShortID
	SeedPeers      []string
	NodeInfo       facade.NodeInfo
	Extensions     []facade.Extension
}

// Node wires the reference collaborators together and decides on relayed
// transactions and blocks.
type Node struct {
	// serializes verification against the chain head with acceptance
	lock sync.Mutex

	config  Config
	clock   mockable.Clock
	log     log.Logger
	blocked set.Set[ids.ShortID]

	store      *Store
	mempool    *Mempool
	engine     *Engine
	network    *Network
	governance *Governance
	extensions *Extensions
}

// New opens a node on [db], writing [genesis] if [db] is empty.
func New(
	config Config,
	genesis *Genesis,
	db database.Database,
	registerer prometheus.Registerer,
	logger log.Logger,
) (*Node, error) {
	if logger == nil {
		logger = log.New("module", "memnode")
	}
	if config.MaxBlockTxs <= 0 {
		config.MaxBlockTxs = defaultMaxBlockTxs
	}
	store, err := NewStore(db, "memnode", registerer)
	if err != nil {
		return nil, err
	}

	n := &Node{
		config:     config,
		log:        logger,
		blocked:    set.NewSet[ids.ShortID](len(config.BlockedSenders)),
		store:      store,
		mempool:    NewMempool(config.MempoolSize),
		engine:     NewEngine(store),
		governance: NewGovernance(config.ValidatorsCount),
		extensions: NewExtensions(config.Extensions...),
	}
	n.blocked.Add(config.BlockedSenders...)
	n.network = NewNetwork(config.NodeInfo, n)

	errs := wrappers.Errs{}
	for _, seed := range config.SeedPeers {
		errs.Add(n.network.AddSeed(seed))
	}
	if errs.Errored() {
		return nil, fmt.Errorf("bad seed peer: %w", errs.Err)
	}

	if err := n.initGenesis(genesis); err != nil {
		return nil, err
	}
	for _, c := range genesis.Candidates {
		n.governance.Vote(c.PublicKey, c.Votes)
	}
	return n, nil
}

func (n *Node) initGenesis(genesis *Genesis) error {
	initialized, err := n.store.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		n.log.Info("found initialized state")
		return nil
	}

	genesisBlock, err := genesis.Block()
	if err != nil {
		return err
	}
	if genesisBlock.Height() != 0 {
		return errBadGenesis
	}
	contracts := make([]*chain.Contract, len(genesis.Contracts))
	storage := make(map[ids.ShortID]map[string][]byte)
	for i, gc := range genesis.Contracts {
		contracts[i] = chain.NewContract(gc.Script, gc.Manifest)
		if len(gc.Storage) > 0 {
			storage[contracts[i].Hash] = gc.Storage
		}
	}
	if err := n.store.Initialize(genesisBlock, contracts, storage); err != nil {
		return fmt.Errorf("failed to initialize genesis: %w", err)
	}
	n.log.Info("initialized genesis", "blkID", genesisBlock.ID(), "contracts", len(contracts))
	return nil
}

// Backend returns the node's collaborators for a facade.
func (n *Node) Backend() facade.Backend {
	return facade.Backend{
		State:      n.store,
		Mempool:    n.mempool,
		Engine:     n.engine,
		Network:    n.network,
		Governance: n.governance,
		Extensions: n.extensions,
	}
}

func (n *Node) Store() *Store           { return n.store }
func (n *Node) Mempool() *Mempool       { return n.mempool }
func (n *Node) Network() *Network       { return n.network }
func (n *Node) Governance() *Governance { return n.governance }
func (n *Node) Extensions() *Extensions { return n.extensions }
func (n *Node) Clock() *mockable.Clock  { return &n.clock }
func (n *Node) Close() error            { return n.store.Close() }

// SubmitTransaction verifies [tx] against the chain head and adds it to the
// mempool.
func (n *Node) SubmitTransaction(ctx context.Context, tx *chain.Transaction) facade.RelayOutcome {
	n.lock.Lock()
	defer n.lock.Unlock()

	txID := tx.ID()
	onChain, err := n.store.HasTransaction(txID)
	if err != nil {
		n.log.Error("failed to look up transaction", "txID", txID, "err", err)
		return facade.RelayUnknown
	}
	if onChain || n.mempool.Has(txID) {
		return facade.RelayAlreadyExists
	}
	_, height, err := n.store.LastAccepted(ctx)
	if err != nil {
		n.log.Error("failed to read chain head", "err", err)
		return facade.RelayUnknown
	}
	if outcome := n.verifyTx(tx, height); outcome != facade.RelaySucceeded {
		return outcome
	}

	switch err := n.mempool.Add(tx); {
	case errors.Is(err, errMempoolFull):
		return facade.RelayPoolFull
	case errors.Is(err, errDuplicateTx):
		return facade.RelayAlreadyExists
	case err != nil:
		n.log.Error("failed to add transaction", "txID", txID, "err", err)
		return facade.RelayUnknown
	}
	n.log.Debug("added transaction to mempool", "txID", txID)
	return facade.RelaySucceeded
}

// verifyTx checks [tx] as if it were included in the block after [height].
func (n *Node) verifyTx(tx *chain.Transaction, height uint64) facade.RelayOutcome {
	if n.blocked.Contains(tx.Sender) {
		return facade.RelayPolicyRejected
	}
	if len(tx.Signers) == 0 || len(tx.Witnesses) != len(tx.Signers) {
		return facade.RelayInvalid
	}
	if tx.ValidUntilBlock <= height {
		return facade.RelayInvalid
	}
	for i, w := range tx.Witnesses {
		if chain.ScriptHash(w.Verification) != tx.Signers[i] {
			return facade.RelayUnableToVerify
		}
	}
	return facade.RelaySucceeded
}

// SubmitBlock accepts [blk] if it extends the chain head.
func (n *Node) SubmitBlock(ctx context.Context, blk *chain.Block) facade.RelayOutcome {
	n.lock.Lock()
	defer n.lock.Unlock()

	blkID := blk.ID()
	known, err := n.store.HasBlock(blkID)
	if err != nil {
		n.log.Error("failed to look up block", "blkID", blkID, "err", err)
		return facade.RelayUnknown
	}
	headID, height, err := n.store.LastAccepted(ctx)
	if err != nil {
		n.log.Error("failed to read chain head", "err", err)
		return facade.RelayUnknown
	}
	if known || blk.Height() <= height {
		return facade.RelayAlreadyExists
	}
	if blk.Parent() != headID || blk.Height() != height+1 {
		return facade.RelayUnableToVerify
	}
	if outcome := n.verifyBlock(ctx, blk, height); outcome != facade.RelaySucceeded {
		return outcome
	}
	if err := n.accept(blk); err != nil {
		n.log.Error("failed to accept block", "blkID", blkID, "err", err)
		return facade.RelayUnknown
	}
	return facade.RelaySucceeded
}

func (n *Node) verifyBlock(ctx context.Context, blk *chain.Block, height uint64) facade.RelayOutcome {
	txs := blk.Transactions()
	if blk.Header().TxRoot != chain.ComputeTxRoot(txs) {
		return facade.RelayInvalid
	}
	parent, err := n.store.GetHeader(ctx, blk.Parent())
	if err != nil {
		return facade.RelayUnableToVerify
	}
	if blk.Timestamp().Before(parent.Timestamp()) {
		return facade.RelayInvalid
	}
	seen := set.NewSet[ids.ID](len(txs))
	for i := range txs {
		txID := txs[i].ID()
		onChain, err := n.store.HasTransaction(txID)
		if err != nil || onChain || seen.Contains(txID) {
			return facade.RelayInvalid
		}
		seen.Add(txID)
		if n.verifyTx(&txs[i], height) != facade.RelaySucceeded {
			return facade.RelayInvalid
		}
	}
	return facade.RelaySucceeded
}

// BuildBlock packs verified mempool transactions into a block on top of the
// chain head and accepts it.
func (n *Node) BuildBlock(ctx context.Context) (*chain.Block, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	txs := n.mempool.Peek(n.config.MaxBlockTxs)
	if len(txs) == 0 {
		return nil, ErrNoPendingTxs
	}
	headID, height, err := n.store.LastAccepted(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := n.store.GetHeader(ctx, headID)
	if err != nil {
		return nil, err
	}
	timestamp := n.clock.Time()
	if timestamp.Before(parent.Timestamp()) {
		timestamp = parent.Timestamp()
	}
	blk, err := chain.NewBlock(headID, height+1, timestamp.Truncate(time.Second), parent.Consensus, txs)
	if err != nil {
		return nil, err
	}
	if err := n.accept(blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// accept persists [blk] and re-checks the remaining mempool against the new
// head. Must be called with the lock held.
func (n *Node) accept(blk *chain.Block) error {
	if err := n.store.Accept(blk); err != nil {
		return err
	}
	n.mempool.Accepted(blk.Transactions())
	dropped := n.mempool.Reverify(func(tx *chain.Transaction) bool {
		onChain, err := n.store.HasTransaction(tx.ID())
		return err == nil && !onChain && n.verifyTx(tx, blk.Height()) == facade.RelaySucceeded
	})
	n.log.Info("accepted block",
		"blkID", blk.ID(),
		"height", blk.Height(),
		"txs", len(blk.Transactions()),
		"dropped", dropped,
	)
	return nil
}
