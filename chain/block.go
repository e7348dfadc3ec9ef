// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

// Block is a header plus the ordered transactions it commits to.
type Block struct {
	Hdr Header        `serialize:"true"`
	Txs []Transaction `serialize:"true"`

	bytes []byte
}

// NewBlock returns a new, initialized Block where:
// - the block's parent is [parentID]
// - the block's transactions are [txs], which must be initialized
// - the block's timestamp is [timestamp]
func NewBlock(parentID ids.ID, height uint64, timestamp time.Time, consensus ids.ShortID, txs []Transaction) (*Block, error) {
	hdr, err := NewHeader(parentID, height, timestamp.Unix(), ComputeTxRoot(txs), consensus)
	if err != nil {
		return nil, err
	}
	blk := &Block{
		Hdr: *hdr,
		Txs: txs,
	}
	blk.bytes, err = marshal(blk)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// ParseBlock parses [b] to a Block. The header and every transaction are
// initialized so their IDs are available.
func ParseBlock(b []byte) (*Block, error) {
	blk := &Block{}
	if err := unmarshal(b, blk); err != nil {
		return nil, err
	}
	if err := blk.Hdr.initialize(); err != nil {
		return nil, err
	}
	for i := range blk.Txs {
		if err := blk.Txs[i].Initialize(); err != nil {
			return nil, err
		}
	}
	blk.bytes = b
	return blk, nil
}

// ComputeTxRoot returns the digest a header commits to for [txs].
// An empty block has an empty root.
func ComputeTxRoot(txs []Transaction) ids.ID {
	if len(txs) == 0 {
		return ids.Empty
	}
	buf := make([]byte, 0, len(txs)*len(ids.Empty))
	for i := range txs {
		id := txs[i].ID()
		buf = append(buf, id[:]...)
	}
	return ids.ID(hashing.ComputeHash256Array(buf))
}

// ID returns the ID of this block
func (b *Block) ID() ids.ID { return b.Hdr.ID() }

// Header returns the block's header
func (b *Block) Header() *Header { return &b.Hdr }

// Parent returns [b]'s parent's ID
func (b *Block) Parent() ids.ID { return b.Hdr.PrntID }

// Height returns this block's height. The genesis block has height 0.
func (b *Block) Height() uint64 { return b.Hdr.Hght }

// Timestamp returns this block's time.
func (b *Block) Timestamp() time.Time { return b.Hdr.Timestamp() }

// Transactions returns the block's transactions in order
func (b *Block) Transactions() []Transaction { return b.Txs }

// Bytes returns the canonical byte repr. of this block
func (b *Block) Bytes() []byte { return b.bytes }
