// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"net"
	"strconv"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
)

var _ facade.Network = (*Network)(nil)

// relayer decides on submitted transactions and blocks.
type relayer interface {
	SubmitTransaction(ctx context.Context, tx *chain.Transaction) facade.RelayOutcome
	SubmitBlock(ctx context.Context, blk *chain.Block) facade.RelayOutcome
}

// Network tracks known peers. It has no transport, so relays are decided
// locally.
type Network struct {
	lock sync.RWMutex

	info        facade.NodeInfo
	relayer     relayer
	connected   map[string]facade.PeerInfo
	unconnected map[string]facade.PeerInfo
}

func NewNetwork(info facade.NodeInfo, relayer relayer) *Network {
	return &Network{
		info:        info,
		relayer:     relayer,
		connected:   make(map[string]facade.PeerInfo),
		unconnected: make(map[string]facade.PeerInfo),
	}
}

// AddSeed records "host:port" [endpoint] as a known but unconnected peer.
func (n *Network) AddSeed(endpoint string) error {
	peer, err := parsePeer(endpoint)
	if err != nil {
		return err
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.connected[endpoint]; !ok {
		n.unconnected[endpoint] = peer
	}
	return nil
}

func (n *Network) Connected(endpoint string) error {
	peer, err := parsePeer(endpoint)
	if err != nil {
		return err
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	delete(n.unconnected, endpoint)
	n.connected[endpoint] = peer
	return nil
}

// Disconnected moves a connected peer back to the unconnected list.
func (n *Network) Disconnected(endpoint string) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if peer, ok := n.connected[endpoint]; ok {
		delete(n.connected, endpoint)
		n.unconnected[endpoint] = peer
	}
}

func (n *Network) NodeInfo() facade.NodeInfo { return n.info }

func (n *Network) PeerCount() int {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return len(n.connected)
}

func (n *Network) ConnectedPeers() []facade.PeerInfo {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return sortedPeers(n.connected)
}

func (n *Network) UnconnectedPeers() []facade.PeerInfo {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return sortedPeers(n.unconnected)
}

func (n *Network) RelayTransaction(ctx context.Context, tx *chain.Transaction) facade.RelayOutcome {
	return n.relayer.SubmitTransaction(ctx, tx)
}

func (n *Network) RelayBlock(ctx context.Context, blk *chain.Block) facade.RelayOutcome {
	return n.relayer.SubmitBlock(ctx, blk)
}

func parsePeer(endpoint string) (facade.PeerInfo, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return facade.PeerInfo{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return facade.PeerInfo{}, err
	}
	return facade.PeerInfo{Address: host, Port: uint16(port)}, nil
}

func sortedPeers(peers map[string]facade.PeerInfo) []facade.PeerInfo {
	endpoints := maps.Keys(peers)
	slices.Sort(endpoints)
	out := make([]facade.PeerInfo, len(endpoints))
	for i, endpoint := range endpoints {
		out[i] = peers[endpoint]
	}
	return out
}
