// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/units"
)

const (
	// CodecVersion is the only version entities are encoded with
	CodecVersion = 0
	// MaxEntitySize bounds the canonical bytes of any encoded entity
	MaxEntitySize = 2 * units.MiB
)

var (
	errWrongCodecVersion = errors.New("wrong codec version")

	// Codec produces the canonical bytes that entity IDs are computed from
	Codec codec.Manager
)

func init() {
	Codec = codec.NewManager(MaxEntitySize)
	if err := Codec.RegisterCodec(CodecVersion, linearcodec.NewDefault()); err != nil {
		panic(err)
	}
}

func marshal(v interface{}) ([]byte, error) {
	return Codec.Marshal(CodecVersion, v)
}

// unmarshal parses canonical bytes [b] into [v]. Bytes of any other codec
// version are rejected.
func unmarshal(b []byte, v interface{}) error {
	version, err := Codec.Unmarshal(b, v)
	if err != nil {
		return err
	}
	if version != CodecVersion {
		return fmt.Errorf("%w: %d", errWrongCodecVersion, version)
	}
	return nil
}
