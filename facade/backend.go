// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/set"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/script"
)

var errMissingCollaborator = errors.New("missing collaborator")

// State is the node's canonical chain state. Lookups of absent entities
// return database.ErrNotFound.
type State interface {
	// LastAccepted returns the ID and height of the chain head
	LastAccepted(ctx context.Context) (ids.ID, uint64, error)
	GetBlockIDAtHeight(ctx context.Context, height uint64) (ids.ID, error)
	GetBlock(ctx context.Context, blkID ids.ID) (*chain.Block, error)
	GetHeader(ctx context.Context, blkID ids.ID) (*chain.Header, error)
	// GetNextBlockID returns the ID of the accepted child of [blkID]
	GetNextBlockID(ctx context.Context, blkID ids.ID) (ids.ID, error)
	GetTransaction(ctx context.Context, txID ids.ID) (*chain.Transaction, error)
	// GetTransactionHeight returns the height of the block containing [txID]
	GetTransactionHeight(ctx context.Context, txID ids.ID) (uint64, error)
	GetContract(ctx context.Context, hash ids.ShortID) (*chain.Contract, error)
	GetStorage(ctx context.Context, contract ids.ShortID, key []byte) ([]byte, error)
	// GetSystemFee returns the system fees paid by all blocks up to and
	// including [height]
	GetSystemFee(ctx context.Context, height uint64) (uint64, error)
}

// Mempool holds transactions that have not been accepted yet.
type Mempool interface {
	Get(ctx context.Context, txID ids.ID) (*chain.Transaction, bool)
	VerifiedIDs(ctx context.Context) []ids.ID
	// Partition returns the verified and unverified transactions as of a
	// single moment.
	Partition(ctx context.Context) (verified []ids.ID, unverified []ids.ID)
}

// ExecutionOutcome is what the engine reports for one run.
type ExecutionOutcome struct {
	State          script.VMState
	GasConsumed    uint64
	Stack          []script.Item
	FaultException string
}

// Engine executes scripts against the current state without persisting
// anything.
type Engine interface {
	Run(ctx context.Context, code []byte, override *IdentityOverride, gasLimit uint64) (*ExecutionOutcome, error)
}

type NodeInfo struct {
	TCPPort   uint16
	WSPort    uint16
	Nonce     uint32
	UserAgent string
}

type PeerInfo struct {
	Address string
	Port    uint16
}

// Network is the p2p layer. Relays block until the node decides.
type Network interface {
	NodeInfo() NodeInfo
	PeerCount() int
	ConnectedPeers() []PeerInfo
	UnconnectedPeers() []PeerInfo
	RelayTransaction(ctx context.Context, tx *chain.Transaction) RelayOutcome
	RelayBlock(ctx context.Context, blk *chain.Block) RelayOutcome
}

type Candidate struct {
	PublicKey chain.PublicKey
	Votes     uint64
}

// ValidatorSnapshot is a consistent view of the governance contract.
type ValidatorSnapshot interface {
	ActiveValidators() set.Set[chain.PublicKey]
	RegisteredValidators() []Candidate
}

type Governance interface {
	Snapshot(ctx context.Context) (ValidatorSnapshot, error)
}

type Extension struct {
	Name       string
	Version    string
	Interfaces []string
}

type Extensions interface {
	Extensions() []Extension
}

// Backend bundles the collaborators a Facade queries.
type Backend struct {
	State      State
	Mempool    Mempool
	Engine     Engine
	Network    Network
	Governance Governance
	Extensions Extensions
}

func (b Backend) verify() error {
	switch {
	case b.State == nil:
		return fmt.Errorf("%w: state", errMissingCollaborator)
	case b.Mempool == nil:
		return fmt.Errorf("%w: mempool", errMissingCollaborator)
	case b.Engine == nil:
		return fmt.Errorf("%w: engine", errMissingCollaborator)
	case b.Network == nil:
		return fmt.Errorf("%w: network", errMissingCollaborator)
	case b.Governance == nil:
		return fmt.Errorf("%w: governance", errMissingCollaborator)
	case b.Extensions == nil:
		return fmt.Errorf("%w: extensions", errMissingCollaborator)
	default:
		return nil
	}
}
