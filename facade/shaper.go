// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/queryvm/chain"
)

func encodeHex(b []byte) (string, error) {
	return formatting.Encode(formatting.HexNC, b)
}

// confirmations counts the entity's own block. [head] is read before the
// entity is resolved, so it may trail [height] while blocks are accepted.
func confirmations(head, height uint64) json.Uint64 {
	if height > head {
		head = height
	}
	return json.Uint64(head - height + 1)
}

func (f *Facade) renderHeader(ctx context.Context, hdr *chain.Header, verbose bool, head uint64) (*HeaderReply, error) {
	if !verbose {
		raw, err := encodeHex(hdr.Bytes())
		if err != nil {
			return nil, f.internal("encode header", err)
		}
		return &HeaderReply{Raw: raw}, nil
	}
	v, err := f.verboseHeader(ctx, hdr, head)
	if err != nil {
		return nil, err
	}
	return &HeaderReply{Verbose: v}, nil
}

func (f *Facade) renderBlock(ctx context.Context, blk *chain.Block, verbose bool, head uint64) (*BlockReply, error) {
	if !verbose {
		raw, err := encodeHex(blk.Bytes())
		if err != nil {
			return nil, f.internal("encode block", err)
		}
		return &BlockReply{Raw: raw}, nil
	}
	hdr, err := f.verboseHeader(ctx, blk.Header(), head)
	if err != nil {
		return nil, err
	}
	hdr.Size = json.Uint32(len(blk.Bytes()))

	txs := blk.Transactions()
	verboseTxs := make([]VerboseTransaction, len(txs))
	for i := range txs {
		vtx, err := f.verboseTransaction(&txs[i])
		if err != nil {
			return nil, err
		}
		verboseTxs[i] = *vtx
	}
	return &BlockReply{Verbose: &VerboseBlock{VerboseHeader: *hdr, Tx: verboseTxs}}, nil
}

// renderTransaction adds the containing block's fields to a verbose view
// only when [height] is set.
func (f *Facade) renderTransaction(ctx context.Context, tx *chain.Transaction, verbose bool, height *uint64, head uint64) (*TransactionReply, error) {
	if !verbose {
		raw, err := encodeHex(tx.Bytes())
		if err != nil {
			return nil, f.internal("encode transaction", err)
		}
		return &TransactionReply{Raw: raw}, nil
	}
	v, err := f.verboseTransaction(tx)
	if err != nil {
		return nil, err
	}
	if height == nil {
		return &TransactionReply{Verbose: v}, nil
	}

	blkID, err := f.backend.State.GetBlockIDAtHeight(ctx, *height)
	if err != nil {
		return nil, f.internal("GetBlockIDAtHeight", err)
	}
	hdr, err := f.backend.State.GetHeader(ctx, blkID)
	if err != nil {
		return nil, f.internal("GetHeader", err)
	}
	conf := confirmations(head, *height)
	blockTime := json.Uint64(hdr.Timestamp().Unix())
	v.BlockHash = &blkID
	v.Confirmations = &conf
	v.BlockTime = &blockTime
	return &TransactionReply{Verbose: v}, nil
}

func (f *Facade) verboseHeader(ctx context.Context, hdr *chain.Header, head uint64) (*VerboseHeader, error) {
	nextConsensus, err := chain.FormatAddress(f.config.AddressHRP, hdr.Consensus)
	if err != nil {
		return nil, f.internal("format address", err)
	}
	v := &VerboseHeader{
		Hash:              hdr.ID(),
		Size:              json.Uint32(len(hdr.Bytes())),
		Index:             json.Uint64(hdr.Height()),
		PreviousBlockHash: hdr.Parent(),
		Time:              json.Uint64(hdr.Timestamp().Unix()),
		MerkleRoot:        hdr.TxRoot,
		NextConsensus:     nextConsensus,
		Confirmations:     confirmations(head, hdr.Height()),
	}

	nextID, err := f.backend.State.GetNextBlockID(ctx, hdr.ID())
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return nil, f.internal("GetNextBlockID", err)
	default:
		v.NextBlockHash = &nextID
	}
	return v, nil
}

func (f *Facade) verboseTransaction(tx *chain.Transaction) (*VerboseTransaction, error) {
	sender, err := chain.FormatAddress(f.config.AddressHRP, tx.Sender)
	if err != nil {
		return nil, f.internal("format address", err)
	}
	signers := make([]string, len(tx.Signers))
	for i, signer := range tx.Signers {
		signers[i], err = chain.FormatAddress(f.config.AddressHRP, signer)
		if err != nil {
			return nil, f.internal("format address", err)
		}
	}
	code, err := encodeHex(tx.Script)
	if err != nil {
		return nil, f.internal("encode script", err)
	}
	witnesses := make([]VerboseWitness, len(tx.Witnesses))
	for i, w := range tx.Witnesses {
		witnesses[i].Invocation, err = encodeHex(w.Invocation)
		if err != nil {
			return nil, f.internal("encode witness", err)
		}
		witnesses[i].Verification, err = encodeHex(w.Verification)
		if err != nil {
			return nil, f.internal("encode witness", err)
		}
	}
	return &VerboseTransaction{
		Hash:            tx.ID(),
		Size:            json.Uint32(len(tx.Bytes())),
		Nonce:           json.Uint32(tx.Nonce),
		Sender:          sender,
		SysFee:          json.Uint64(tx.SysFee),
		NetFee:          json.Uint64(tx.NetFee),
		ValidUntilBlock: json.Uint64(tx.ValidUntilBlock),
		Signers:         signers,
		Script:          code,
		Witnesses:       witnesses,
	}, nil
}

// parseHash reads a CB58 entity hash.
func parseHash(s string) (ids.ID, error) {
	id, err := ids.FromString(s)
	if err != nil {
		return ids.Empty, ErrMalformedHash.WithData(err.Error())
	}
	return id, nil
}
