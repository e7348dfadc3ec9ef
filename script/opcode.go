// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package script

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// Opcode is a single script instruction.
type Opcode byte

const (
	RET      Opcode = 0x00
	PUSHINT  Opcode = 0x01 // 1 byte length, sign byte, big-endian magnitude
	PUSHDATA Opcode = 0x02 // 2 byte big-endian length, data
	PUSHT    Opcode = 0x03
	PUSHF    Opcode = 0x04
	PUSHNULL Opcode = 0x05

	DUP  Opcode = 0x10
	DROP Opcode = 0x11
	SWAP Opcode = 0x12

	PACK   Opcode = 0x20
	APPEND Opcode = 0x21

	ADD   Opcode = 0x30
	SUB   Opcode = 0x31
	MUL   Opcode = 0x32
	EQUAL Opcode = 0x33
	NOT   Opcode = 0x34

	JMP      Opcode = 0x40 // 2 byte signed offset from the start of the instruction
	JMPIFNOT Opcode = 0x41

	SYSCALL Opcode = 0x50 // 1 byte syscall ID
	APPCALL Opcode = 0x51 // 20 byte script hash

	THROW Opcode = 0x60
)

// Syscall identifies a host function reachable through SYSCALL.
type Syscall byte

const (
	CheckWitness Syscall = 0x01
	GetHeight    Syscall = 0x02
	StorageGet   Syscall = 0x03
)

// MaxIntegerSize is the largest magnitude PUSHINT can carry, in bytes.
const MaxIntegerSize = 32

var (
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrTruncatedOperand = errors.New("truncated operand")
	ErrIntegerTooLarge  = errors.New("integer too large")
)

var opcodeNames = map[Opcode]string{
	RET:      "RET",
	PUSHINT:  "PUSHINT",
	PUSHDATA: "PUSHDATA",
	PUSHT:    "PUSHT",
	PUSHF:    "PUSHF",
	PUSHNULL: "PUSHNULL",
	DUP:      "DUP",
	DROP:     "DROP",
	SWAP:     "SWAP",
	PACK:     "PACK",
	APPEND:   "APPEND",
	ADD:      "ADD",
	SUB:      "SUB",
	MUL:      "MUL",
	EQUAL:    "EQUAL",
	NOT:      "NOT",
	JMP:      "JMP",
	JMPIFNOT: "JMPIFNOT",
	SYSCALL:  "SYSCALL",
	APPCALL:  "APPCALL",
	THROW:    "THROW",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}

// Instruction is one decoded opcode and its operand.
type Instruction struct {
	Op      Opcode
	Operand []byte
	// Size is the encoded length of the instruction, opcode included
	Size int
}

// JumpOffset returns the signed offset of a JMP or JMPIFNOT.
func (i Instruction) JumpOffset() int {
	return int(int16(binary.BigEndian.Uint16(i.Operand)))
}

// ScriptHash returns the target of an APPCALL.
func (i Instruction) ScriptHash() ids.ShortID {
	var h ids.ShortID
	copy(h[:], i.Operand)
	return h
}

// Decode reads the instruction at offset [ip] of [script].
func Decode(script []byte, ip int) (Instruction, error) {
	if ip < 0 || ip >= len(script) {
		return Instruction{}, fmt.Errorf("%w: offset %d", ErrTruncatedOperand, ip)
	}
	op := Opcode(script[ip])
	rest := script[ip+1:]

	operand := func(n int) (Instruction, error) {
		if len(rest) < n {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrTruncatedOperand, op, ip)
		}
		return Instruction{Op: op, Operand: rest[:n], Size: 1 + n}, nil
	}

	switch op {
	case RET, PUSHT, PUSHF, PUSHNULL, DUP, DROP, SWAP, PACK, APPEND,
		ADD, SUB, MUL, EQUAL, NOT, THROW:
		return Instruction{Op: op, Size: 1}, nil
	case PUSHINT:
		if len(rest) < 1 {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrTruncatedOperand, op, ip)
		}
		n := int(rest[0])
		if n > MaxIntegerSize+1 {
			return Instruction{}, ErrIntegerTooLarge
		}
		if len(rest) < 1+n {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrTruncatedOperand, op, ip)
		}
		return Instruction{Op: op, Operand: rest[1 : 1+n], Size: 2 + n}, nil
	case PUSHDATA:
		if len(rest) < 2 {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrTruncatedOperand, op, ip)
		}
		n := int(binary.BigEndian.Uint16(rest))
		if len(rest) < 2+n {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrTruncatedOperand, op, ip)
		}
		return Instruction{Op: op, Operand: rest[2 : 2+n], Size: 3 + n}, nil
	case JMP, JMPIFNOT:
		return operand(2)
	case SYSCALL:
		return operand(1)
	case APPCALL:
		return operand(len(ids.ShortEmpty))
	default:
		return Instruction{}, fmt.Errorf("%w: 0x%02x at %d", ErrUnknownOpcode, byte(op), ip)
	}
}
