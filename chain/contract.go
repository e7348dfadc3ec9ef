// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

// Manifest describes what a deployed contract exposes.
type Manifest struct {
	Name    string   `serialize:"true"`
	Methods []string `serialize:"true"`
	Storage bool     `serialize:"true"`
	Payable bool     `serialize:"true"`
}

// Contract is a deployed script addressed by its script hash.
type Contract struct {
	Hash     ids.ShortID `serialize:"true"`
	Script   []byte      `serialize:"true"`
	Manifest Manifest    `serialize:"true"`
}

// NewContract returns the contract that deploying [script] would create.
func NewContract(script []byte, manifest Manifest) *Contract {
	return &Contract{
		Hash:     ScriptHash(script),
		Script:   script,
		Manifest: manifest,
	}
}

// ParseContract parses the canonical bytes of a contract.
func ParseContract(b []byte) (*Contract, error) {
	c := &Contract{}
	if err := unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Bytes returns the canonical byte repr. of this contract
func (c *Contract) Bytes() ([]byte, error) {
	return marshal(c)
}

// ScriptHash returns the 20 byte identifier of [script].
func ScriptHash(script []byte) ids.ShortID {
	return ids.ShortID(hashing.ComputeHash160Array(hashing.ComputeHash256(script)))
}
