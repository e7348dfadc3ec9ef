// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
)

const defaultMempoolSize = 100

var (
	errMempoolFull = errors.New("mempool is full")
	errDuplicateTx = errors.New("transaction already in mempool")

	_ facade.Mempool = (*Mempool)(nil)
)

// Mempool holds pending transactions. A transaction is verified when it was
// checked against the current chain head and unverified after the head moved
// and before it is checked again.
type Mempool struct {
	lock sync.RWMutex

	size       int
	txs        map[ids.ID]*chain.Transaction
	verified   []ids.ID
	unverified []ids.ID
}

func NewMempool(size int) *Mempool {
	if size <= 0 {
		size = defaultMempoolSize
	}
	return &Mempool{
		size: size,
		txs:  make(map[ids.ID]*chain.Transaction),
	}
}

// Add inserts a verified transaction.
func (m *Mempool) Add(tx *chain.Transaction) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	txID := tx.ID()
	if _, ok := m.txs[txID]; ok {
		return fmt.Errorf("%w: %s", errDuplicateTx, txID)
	}
	if len(m.txs) >= m.size {
		return fmt.Errorf("%w: failed to add %s at size (%d)", errMempoolFull, txID, m.size)
	}
	m.txs[txID] = tx
	m.verified = append(m.verified, txID)
	return nil
}

func (m *Mempool) Has(txID ids.ID) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, ok := m.txs[txID]
	return ok
}

func (m *Mempool) Get(_ context.Context, txID ids.ID) (*chain.Transaction, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tx, ok := m.txs[txID]
	return tx, ok
}

func (m *Mempool) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.txs)
}

func (m *Mempool) VerifiedIDs(context.Context) []ids.ID {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return append([]ids.ID{}, m.verified...)
}

func (m *Mempool) Partition(context.Context) ([]ids.ID, []ids.ID) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return append([]ids.ID{}, m.verified...), append([]ids.ID{}, m.unverified...)
}

// Peek returns up to [max] verified transactions in arrival order.
func (m *Mempool) Peek(max int) []chain.Transaction {
	m.lock.RLock()
	defer m.lock.RUnlock()

	n := len(m.verified)
	if max < n {
		n = max
	}
	txs := make([]chain.Transaction, n)
	for i, txID := range m.verified[:n] {
		txs[i] = *m.txs[txID]
	}
	return txs
}

// Accepted drops [txs] from the pool and marks everything left unverified.
func (m *Mempool) Accepted(txs []chain.Transaction) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i := range txs {
		delete(m.txs, txs[i].ID())
	}
	remaining := make([]ids.ID, 0, len(m.txs))
	for _, txID := range append(m.verified, m.unverified...) {
		if _, ok := m.txs[txID]; ok {
			remaining = append(remaining, txID)
		}
	}
	m.verified = nil
	m.unverified = remaining
}

// Reverify checks every unverified transaction with [verify]. Those that
// pass become verified, the rest are dropped.
func (m *Mempool) Reverify(verify func(*chain.Transaction) bool) (dropped int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, txID := range m.unverified {
		tx := m.txs[txID]
		if verify(tx) {
			m.verified = append(m.verified, txID)
			continue
		}
		delete(m.txs, txID)
		dropped++
	}
	m.unverified = nil
	return dropped
}
