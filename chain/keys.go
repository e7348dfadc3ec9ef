// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/formatting"
)

// PublicKeyLen is the length of a compressed secp256k1 public key
const PublicKeyLen = 33

// PublicKey is a compressed public key of a validator candidate.
type PublicKey [PublicKeyLen]byte

// PublicKeyFromString parses the hex repr. of a public key.
func PublicKeyFromString(s string) (PublicKey, error) {
	var key PublicKey
	b, err := formatting.Decode(formatting.HexNC, s)
	if err != nil {
		return key, err
	}
	if len(b) != PublicKeyLen {
		return key, fmt.Errorf("expected %d bytes but got %d", PublicKeyLen, len(b))
	}
	copy(key[:], b)
	return key, nil
}

func (k PublicKey) String() string {
	s, _ := formatting.Encode(formatting.HexNC, k[:])
	return s
}

// Compare orders keys by their bytes.
func (k PublicKey) Compare(other PublicKey) int {
	return bytes.Compare(k[:], other[:])
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	key, err := PublicKeyFromString(s)
	if err != nil {
		return err
	}
	*k = key
	return nil
}
