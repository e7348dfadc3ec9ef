// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package script

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ava-labs/avalanchego/ids"
)

var errDataTooLarge = errors.New("data too large for PUSHDATA")

// Builder emits script bytes. The first error encountered is kept and
// returned by Script; later emits are ignored.
type Builder struct {
	buf bytes.Buffer
	err error
}

func NewBuilder() *Builder { return &Builder{} }

// Script returns the emitted bytes.
func (b *Builder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf.Bytes(), nil
}

// Emit writes [op] followed by its raw [operand].
func (b *Builder) Emit(op Opcode, operand ...byte) *Builder {
	if b.err != nil {
		return b
	}
	b.buf.WriteByte(byte(op))
	b.buf.Write(operand)
	return b
}

func (b *Builder) EmitPushInt(v int64) *Builder {
	return b.EmitPushBigInt(big.NewInt(v))
}

func (b *Builder) EmitPushBigInt(v *big.Int) *Builder {
	operand, err := EncodeInteger(v)
	if err != nil {
		b.err = err
		return b
	}
	return b.Emit(PUSHINT, append([]byte{byte(len(operand))}, operand...)...)
}

func (b *Builder) EmitPushBytes(data []byte) *Builder {
	if len(data) > math.MaxUint16 {
		b.err = errDataTooLarge
		return b
	}
	operand := make([]byte, 2, 2+len(data))
	binary.BigEndian.PutUint16(operand, uint16(len(data)))
	return b.Emit(PUSHDATA, append(operand, data...)...)
}

func (b *Builder) EmitPushString(s string) *Builder {
	return b.EmitPushBytes([]byte(s))
}

func (b *Builder) EmitPushBool(v bool) *Builder {
	if v {
		return b.Emit(PUSHT)
	}
	return b.Emit(PUSHF)
}

func (b *Builder) EmitSyscall(id Syscall) *Builder {
	return b.Emit(SYSCALL, byte(id))
}

// EmitJump writes a jump of [offset] bytes relative to the jump itself.
func (b *Builder) EmitJump(op Opcode, offset int16) *Builder {
	if op != JMP && op != JMPIFNOT {
		b.err = fmt.Errorf("%s is not a jump", op)
		return b
	}
	operand := make([]byte, 2)
	binary.BigEndian.PutUint16(operand, uint16(offset))
	return b.Emit(op, operand...)
}

// EmitParam pushes [p]. Arrays are pushed as their items followed by PACK.
func (b *Builder) EmitParam(p Parameter) *Builder {
	if b.err != nil {
		return b
	}
	switch p.Type {
	case AnyType:
		return b.Emit(PUSHNULL)
	case BooleanType:
		v, ok := p.Value.(bool)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushBool(v)
	case IntegerType:
		v, ok := p.Value.(*big.Int)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushBigInt(v)
	case ByteArrayType:
		v, ok := p.Value.([]byte)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushBytes(v)
	case StringType:
		v, ok := p.Value.(string)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushString(v)
	case Hash160Type:
		v, ok := p.Value.(ids.ShortID)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushBytes(v[:])
	case Hash256Type:
		v, ok := p.Value.(ids.ID)
		if !ok {
			return b.badParam(p)
		}
		return b.EmitPushBytes(v[:])
	case ArrayType:
		v, ok := p.Value.([]Parameter)
		if !ok {
			return b.badParam(p)
		}
		return b.emitPack(v)
	default:
		return b.badParam(p)
	}
}

// EmitAppCall writes a call of [operation] on [contract] with [args]. The
// callee finds the operation name on top of the stack and the packed
// arguments below it.
func (b *Builder) EmitAppCall(contract ids.ShortID, operation string, args ...Parameter) *Builder {
	b.emitPack(args)
	b.EmitPushString(operation)
	return b.Emit(APPCALL, contract[:]...)
}

func (b *Builder) emitPack(items []Parameter) *Builder {
	for i := len(items) - 1; i >= 0; i-- {
		b.EmitParam(items[i])
	}
	b.EmitPushInt(int64(len(items)))
	return b.Emit(PACK)
}

func (b *Builder) badParam(p Parameter) *Builder {
	b.err = fmt.Errorf("%s parameter holds %T", p.Type, p.Value)
	return b
}
