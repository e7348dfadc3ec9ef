// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

// Witness proves that a signer authorized a transaction.
type Witness struct {
	Invocation   []byte `serialize:"true"`
	Verification []byte `serialize:"true"`
}

// Transaction is a signed request to run a script on chain.
type Transaction struct {
	Nonce           uint32        `serialize:"true"`
	Sender          ids.ShortID   `serialize:"true"`
	SysFee          uint64        `serialize:"true"`
	NetFee          uint64        `serialize:"true"`
	ValidUntilBlock uint64        `serialize:"true"`
	Script          []byte        `serialize:"true"`
	Signers         []ids.ShortID `serialize:"true"`
	Witnesses       []Witness     `serialize:"true"`

	id    ids.ID
	bytes []byte
}

// ParseTransaction parses the canonical bytes of a transaction.
func ParseTransaction(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	if err := unmarshal(b, tx); err != nil {
		return nil, err
	}
	tx.id = ids.ID(hashing.ComputeHash256Array(b))
	tx.bytes = b
	return tx, nil
}

// Initialize computes the canonical bytes and ID of [tx]. It must be called
// after the exported fields are set and before the transaction is used.
func (tx *Transaction) Initialize() error {
	b, err := marshal(tx)
	if err != nil {
		return err
	}
	tx.id = ids.ID(hashing.ComputeHash256Array(b))
	tx.bytes = b
	return nil
}

// ID returns the hash of the transaction's canonical bytes
func (tx *Transaction) ID() ids.ID { return tx.id }

// Bytes returns the canonical byte repr. of this transaction
func (tx *Transaction) Bytes() []byte { return tx.bytes }
