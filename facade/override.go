// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"errors"

	"github.com/ava-labs/avalanchego/ids"
)

// ErrOverrideNotSerializable is returned by every encoding method of
// IdentityOverride.
var ErrOverrideNotSerializable = errors.New("identity override cannot be serialized")

// IdentityOverride is the set of script hashes an execution treats as having
// witnessed it. It carries no signatures and exists only for the duration of
// one sandboxed run, so it refuses every form of encoding.
type IdentityOverride struct {
	signers []ids.ShortID
}

// NewIdentityOverride returns an override for [signers], in order.
func NewIdentityOverride(signers ...ids.ShortID) *IdentityOverride {
	return &IdentityOverride{signers: append([]ids.ShortID(nil), signers...)}
}

// Signers returns a copy of the overriding script hashes.
func (o *IdentityOverride) Signers() []ids.ShortID {
	if o == nil {
		return nil
	}
	return append([]ids.ShortID(nil), o.signers...)
}

// Contains reports whether [hash] is treated as a witness. A nil override
// contains nothing.
func (o *IdentityOverride) Contains(hash ids.ShortID) bool {
	if o == nil {
		return false
	}
	for _, signer := range o.signers {
		if signer == hash {
			return true
		}
	}
	return false
}

func (*IdentityOverride) Bytes() ([]byte, error) {
	return nil, ErrOverrideNotSerializable
}

func (*IdentityOverride) MarshalJSON() ([]byte, error) {
	return nil, ErrOverrideNotSerializable
}

func (*IdentityOverride) UnmarshalJSON([]byte) error {
	return ErrOverrideNotSerializable
}

func (*IdentityOverride) MarshalBinary() ([]byte, error) {
	return nil, ErrOverrideNotSerializable
}

func (*IdentityOverride) UnmarshalBinary([]byte) error {
	return ErrOverrideNotSerializable
}
