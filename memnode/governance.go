// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
)

const defaultValidatorsCount = 7

var (
	_ facade.Governance        = (*Governance)(nil)
	_ facade.ValidatorSnapshot = (*snapshot)(nil)
)

// Governance keeps candidate vote totals. The [count] candidates with the
// most votes are the active validators.
type Governance struct {
	lock  sync.RWMutex
	count int
	votes map[chain.PublicKey]uint64
}

func NewGovernance(count int) *Governance {
	if count <= 0 {
		count = defaultValidatorsCount
	}
	return &Governance{
		count: count,
		votes: make(map[chain.PublicKey]uint64),
	}
}

// Register adds [key] as a candidate with no votes. Registering twice keeps
// the existing votes.
func (g *Governance) Register(key chain.PublicKey) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if _, ok := g.votes[key]; !ok {
		g.votes[key] = 0
	}
}

// Vote adds [votes] to [key], registering it if needed.
func (g *Governance) Vote(key chain.PublicKey, votes uint64) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.votes[key] += votes
}

type snapshot struct {
	active     set.Set[chain.PublicKey]
	candidates []facade.Candidate
}

func (s *snapshot) ActiveValidators() set.Set[chain.PublicKey] { return s.active }

func (s *snapshot) RegisteredValidators() []facade.Candidate { return s.candidates }

// Snapshot copies the candidates and derives the active set under one lock.
func (g *Governance) Snapshot(context.Context) (facade.ValidatorSnapshot, error) {
	g.lock.RLock()
	keys := maps.Keys(g.votes)
	candidates := make([]facade.Candidate, len(keys))
	for i, key := range keys {
		candidates[i] = facade.Candidate{PublicKey: key, Votes: g.votes[key]}
	}
	count := g.count
	g.lock.RUnlock()

	// most votes first, ties broken by key
	slices.SortFunc(candidates, func(a, b facade.Candidate) bool {
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.PublicKey.Compare(b.PublicKey) < 0
	})
	if count > len(candidates) {
		count = len(candidates)
	}
	active := set.NewSet[chain.PublicKey](count)
	for _, c := range candidates[:count] {
		active.Add(c.PublicKey)
	}
	return &snapshot{active: active, candidates: candidates}, nil
}
