// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

// Header is the part of a block that identifies it. A block's ID is the hash
// of its header's canonical bytes.
type Header struct {
	PrntID    ids.ID      `serialize:"true"` // parent's ID
	Hght      uint64      `serialize:"true"` // This block's height. The genesis block is at height 0.
	Tmstmp    int64       `serialize:"true"` // Time this block was proposed at
	TxRoot    ids.ID      `serialize:"true"` // digest of the block's transaction IDs
	Consensus ids.ShortID `serialize:"true"` // script hash of the next consensus group

	id    ids.ID
	bytes []byte
}

// NewHeader returns an initialized header.
func NewHeader(parentID ids.ID, height uint64, timestamp int64, txRoot ids.ID, consensus ids.ShortID) (*Header, error) {
	h := &Header{
		PrntID:    parentID,
		Hght:      height,
		Tmstmp:    timestamp,
		TxRoot:    txRoot,
		Consensus: consensus,
	}
	return h, h.initialize()
}

// ParseHeader parses the canonical bytes of a header.
func ParseHeader(b []byte) (*Header, error) {
	h := &Header{}
	if err := unmarshal(b, h); err != nil {
		return nil, err
	}
	h.id = ids.ID(hashing.ComputeHash256Array(b))
	h.bytes = b
	return h, nil
}

func (h *Header) initialize() error {
	b, err := marshal(h)
	if err != nil {
		return err
	}
	h.id = ids.ID(hashing.ComputeHash256Array(b))
	h.bytes = b
	return nil
}

// ID returns the ID of this header, which is also the ID of its block
func (h *Header) ID() ids.ID { return h.id }

// Parent returns the parent block's ID
func (h *Header) Parent() ids.ID { return h.PrntID }

// Height returns this block's height. The genesis block has height 0.
func (h *Header) Height() uint64 { return h.Hght }

// Timestamp returns this block's time.
func (h *Header) Timestamp() time.Time { return time.Unix(h.Tmstmp, 0) }

// Bytes returns the canonical byte repr. of this header
func (h *Header) Bytes() []byte { return h.bytes }
