// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package script

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrNotInteger = errors.New("item is not an integer")

	_ Item = Integer{}
	_ Item = Boolean(false)
	_ Item = ByteString(nil)
	_ Item = (*Array)(nil)
	_ Item = Null{}
)

// Item is a value on the evaluation stack.
type Item interface {
	// Equals reports value equality for primitives and reference equality
	// for arrays.
	Equals(other Item) bool
	// Bool is the item's truth value as seen by JMPIFNOT and NOT
	Bool() bool
}

type Integer struct{ Value *big.Int }

// NewInteger returns an Integer item for [v].
func NewInteger(v int64) Integer { return Integer{Value: big.NewInt(v)} }

func (i Integer) Equals(other Item) bool {
	o, ok := other.(Integer)
	return ok && i.Value.Cmp(o.Value) == 0
}

func (i Integer) Bool() bool { return i.Value.Sign() != 0 }

type Boolean bool

func (b Boolean) Equals(other Item) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

func (b Boolean) Bool() bool { return bool(b) }

type ByteString []byte

func (s ByteString) Equals(other Item) bool {
	o, ok := other.(ByteString)
	return ok && bytes.Equal(s, o)
}

func (s ByteString) Bool() bool {
	for _, b := range s {
		if b != 0 {
			return true
		}
	}
	return false
}

// Array is a mutable reference type, so it may end up containing itself.
type Array struct{ Items []Item }

func (a *Array) Equals(other Item) bool {
	o, ok := other.(*Array)
	return ok && a == o
}

func (*Array) Bool() bool { return true }

type Null struct{}

func (Null) Equals(other Item) bool {
	_, ok := other.(Null)
	return ok
}

func (Null) Bool() bool { return false }

// ToBigInt converts integers and booleans to a big integer.
func ToBigInt(item Item) (*big.Int, error) {
	switch v := item.(type) {
	case Integer:
		return v.Value, nil
	case Boolean:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotInteger, item)
	}
}

// EncodeInteger returns the PUSHINT operand of [v]: a sign byte followed by
// the big-endian magnitude.
func EncodeInteger(v *big.Int) ([]byte, error) {
	mag := v.Bytes()
	if len(mag) > MaxIntegerSize {
		return nil, ErrIntegerTooLarge
	}
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	return append([]byte{sign}, mag...), nil
}

// DecodeInteger parses a PUSHINT operand.
func DecodeInteger(operand []byte) (*big.Int, error) {
	if len(operand) == 0 {
		return nil, fmt.Errorf("%w: empty integer", ErrTruncatedOperand)
	}
	if len(operand)-1 > MaxIntegerSize {
		return nil, ErrIntegerTooLarge
	}
	v := new(big.Int).SetBytes(operand[1:])
	switch operand[0] {
	case 0:
	case 1:
		v.Neg(v)
	default:
		return nil, fmt.Errorf("invalid sign byte 0x%02x", operand[0])
	}
	return v, nil
}
