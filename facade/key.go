// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// Key selects a block either by height or by hash, never both.
type Key struct {
	isHeight bool
	height   uint64
	hash     ids.ID
}

func HeightKey(height uint64) Key { return Key{isHeight: true, height: height} }

func HashKey(hash ids.ID) Key { return Key{hash: hash} }

func (k Key) IsHeight() bool { return k.isHeight }

func (k Key) Height() uint64 { return k.height }

func (k Key) Hash() ids.ID { return k.hash }

func (k Key) String() string {
	if k.isHeight {
		return strconv.FormatUint(k.height, 10)
	}
	return k.hash.String()
}

// ParseKey reads [token] as a height if it is a base-10 integer literal and
// as a CB58 hash otherwise. Negative or out of range heights fail with
// ErrInvalidHeight.
func ParseKey(token string) (Key, error) {
	token = strings.TrimSpace(token)
	if isIntegerLiteral(token) {
		if strings.HasPrefix(token, "-") {
			return Key{}, ErrInvalidHeight
		}
		height, err := strconv.ParseUint(strings.TrimPrefix(token, "+"), 10, 64)
		if err != nil {
			return Key{}, ErrInvalidHeight
		}
		return HeightKey(height), nil
	}
	hash, err := ids.FromString(token)
	if err != nil {
		return Key{}, ErrMalformedHash.WithData(err.Error())
	}
	return HashKey(hash), nil
}

func isIntegerLiteral(token string) bool {
	digits := strings.TrimLeft(token, "+-")
	if len(token)-len(digits) > 1 || len(digits) == 0 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// resolveBlockID maps [key] to a block ID. Heights above the chain head fail
// before storage is consulted for the block.
func (f *Facade) resolveBlockID(ctx context.Context, key Key, head uint64) (ids.ID, error) {
	if !key.IsHeight() {
		return key.Hash(), nil
	}
	if key.Height() > head {
		return ids.Empty, ErrInvalidHeight
	}
	blkID, err := f.backend.State.GetBlockIDAtHeight(ctx, key.Height())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ids.Empty, ErrUnknownBlock
	case err != nil:
		return ids.Empty, f.internal("GetBlockIDAtHeight", err)
	}
	return blkID, nil
}
