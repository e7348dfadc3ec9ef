// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/script"
)

const (
	maxStackSize   = 2048
	maxFrameDepth  = 64
	maxArraySize   = 1024
	ctxCheckPeriod = 256
)

var (
	errGasExhausted    = errors.New("gas limit exceeded")
	errStackUnderflow  = errors.New("stack underflow")
	errStackOverflow   = errors.New("stack overflow")
	errFrameOverflow   = errors.New("call depth exceeded")
	errBadJump         = errors.New("jump out of range")
	errNotArray        = errors.New("item is not an array")
	errNotByteString   = errors.New("item is not a byte string")
	errUnknownContract = errors.New("unknown contract")
	errUnknownSyscall  = errors.New("unknown syscall")
	errThrow           = errors.New("THROW")

	_ facade.Engine = (*Engine)(nil)
)

// Gas prices per instruction.
var (
	opPrices = map[script.Opcode]uint64{
		script.RET:      0,
		script.PUSHINT:  1,
		script.PUSHDATA: 1,
		script.PUSHT:    1,
		script.PUSHF:    1,
		script.PUSHNULL: 1,
		script.DUP:      2,
		script.DROP:     2,
		script.SWAP:     2,
		script.PACK:     16,
		script.APPEND:   16,
		script.ADD:      8,
		script.SUB:      8,
		script.MUL:      8,
		script.EQUAL:    8,
		script.NOT:      8,
		script.JMP:      2,
		script.JMPIFNOT: 2,
		script.APPCALL:  512,
		script.THROW:    0,
	}
	syscallPrices = map[script.Syscall]uint64{
		script.CheckWitness: 200,
		script.GetHeight:    4,
		script.StorageGet:   100,
	}
)

// Engine interprets scripts against a Store. Runs are read only.
type Engine struct {
	store *Store
}

func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

type frame struct {
	code       []byte
	scriptHash ids.ShortID
	ip         int
}

type execution struct {
	ctx      context.Context
	store    *Store
	override *facade.IdentityOverride
	height   uint64

	gasLimit uint64
	gas      uint64
	steps    int

	frames []*frame
	stack  []script.Item
}

// Run never reports more gas than [gasLimit]. Script failures end in FAULT
// and are not returned as errors. Only store failures are.
func (e *Engine) Run(ctx context.Context, code []byte, override *facade.IdentityOverride, gasLimit uint64) (*facade.ExecutionOutcome, error) {
	_, height, err := e.store.LastAccepted(ctx)
	if err != nil {
		return nil, err
	}
	ex := &execution{
		ctx:      ctx,
		store:    e.store,
		override: override,
		height:   height,
		gasLimit: gasLimit,
		frames:   []*frame{{code: code, scriptHash: chain.ScriptHash(code)}},
	}

	outcome := &facade.ExecutionOutcome{State: script.HALT}
	if err := ex.run(); err != nil {
		var storeErr *storeError
		if errors.As(err, &storeErr) {
			return nil, storeErr.err
		}
		outcome.State = script.FAULT
		outcome.FaultException = err.Error()
	}
	outcome.GasConsumed = ex.gas
	outcome.Stack = ex.stack
	return outcome, nil
}

// storeError marks failures of the state rather than of the script.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }

func (e *storeError) Unwrap() error { return e.err }

func (ex *execution) run() error {
	for len(ex.frames) > 0 {
		ex.steps++
		if ex.steps%ctxCheckPeriod == 0 {
			if err := ex.ctx.Err(); err != nil {
				return err
			}
		}

		f := ex.frames[len(ex.frames)-1]
		if f.ip == len(f.code) {
			ex.frames = ex.frames[:len(ex.frames)-1]
			continue
		}
		ins, err := script.Decode(f.code, f.ip)
		if err != nil {
			return err
		}
		if err := ex.charge(ins); err != nil {
			return err
		}
		start := f.ip
		f.ip += ins.Size
		if err := ex.step(f, ins, start); err != nil {
			return fmt.Errorf("%s at %d: %w", ins.Op, start, err)
		}
	}
	return nil
}

func (ex *execution) charge(ins script.Instruction) error {
	price := opPrices[ins.Op]
	if ins.Op == script.SYSCALL {
		price = syscallPrices[script.Syscall(ins.Operand[0])]
	}
	if ex.gas+price > ex.gasLimit {
		return errGasExhausted
	}
	ex.gas += price
	return nil
}

// step executes [ins], which starts at offset [start] of [f]. The frame's ip
// already points past [ins].
func (ex *execution) step(f *frame, ins script.Instruction, start int) error {
	switch ins.Op {
	case script.RET:
		ex.frames = ex.frames[:len(ex.frames)-1]
		return nil
	case script.PUSHINT:
		v, err := script.DecodeInteger(ins.Operand)
		if err != nil {
			return err
		}
		return ex.push(script.Integer{Value: v})
	case script.PUSHDATA:
		return ex.push(script.ByteString(append([]byte{}, ins.Operand...)))
	case script.PUSHT:
		return ex.push(script.Boolean(true))
	case script.PUSHF:
		return ex.push(script.Boolean(false))
	case script.PUSHNULL:
		return ex.push(script.Null{})
	case script.DUP:
		top, err := ex.peek()
		if err != nil {
			return err
		}
		return ex.push(top)
	case script.DROP:
		_, err := ex.pop()
		return err
	case script.SWAP:
		if len(ex.stack) < 2 {
			return errStackUnderflow
		}
		n := len(ex.stack)
		ex.stack[n-1], ex.stack[n-2] = ex.stack[n-2], ex.stack[n-1]
		return nil
	case script.PACK:
		return ex.pack()
	case script.APPEND:
		item, err := ex.pop()
		if err != nil {
			return err
		}
		target, err := ex.pop()
		if err != nil {
			return err
		}
		arr, ok := target.(*script.Array)
		if !ok {
			return errNotArray
		}
		if len(arr.Items) >= maxArraySize {
			return errStackOverflow
		}
		arr.Items = append(arr.Items, item)
		return nil
	case script.ADD, script.SUB, script.MUL:
		return ex.arithmetic(ins.Op)
	case script.EQUAL:
		b, err := ex.pop()
		if err != nil {
			return err
		}
		a, err := ex.pop()
		if err != nil {
			return err
		}
		return ex.push(script.Boolean(a.Equals(b)))
	case script.NOT:
		a, err := ex.pop()
		if err != nil {
			return err
		}
		return ex.push(script.Boolean(!a.Bool()))
	case script.JMP, script.JMPIFNOT:
		if ins.Op == script.JMPIFNOT {
			cond, err := ex.pop()
			if err != nil {
				return err
			}
			if cond.Bool() {
				return nil
			}
		}
		target := start + ins.JumpOffset()
		if target < 0 || target > len(f.code) {
			return errBadJump
		}
		f.ip = target
		return nil
	case script.SYSCALL:
		return ex.syscall(f, script.Syscall(ins.Operand[0]))
	case script.APPCALL:
		return ex.appCall(ins.ScriptHash())
	case script.THROW:
		return errThrow
	default:
		return fmt.Errorf("%w: %s", script.ErrUnknownOpcode, ins.Op)
	}
}

func (ex *execution) push(item script.Item) error {
	if len(ex.stack) >= maxStackSize {
		return errStackOverflow
	}
	ex.stack = append(ex.stack, item)
	return nil
}

func (ex *execution) peek() (script.Item, error) {
	if len(ex.stack) == 0 {
		return nil, errStackUnderflow
	}
	return ex.stack[len(ex.stack)-1], nil
}

func (ex *execution) pop() (script.Item, error) {
	item, err := ex.peek()
	if err != nil {
		return nil, err
	}
	ex.stack = ex.stack[:len(ex.stack)-1]
	return item, nil
}

func (ex *execution) popBytes() ([]byte, error) {
	item, err := ex.pop()
	if err != nil {
		return nil, err
	}
	b, ok := item.(script.ByteString)
	if !ok {
		return nil, errNotByteString
	}
	return b, nil
}

// pack pops a count and then that many items. The first popped item is the
// first array element.
func (ex *execution) pack() error {
	top, err := ex.pop()
	if err != nil {
		return err
	}
	count, err := script.ToBigInt(top)
	if err != nil {
		return err
	}
	if !count.IsInt64() || count.Sign() < 0 || count.Int64() > maxArraySize {
		return fmt.Errorf("invalid array size %s", count)
	}
	n := int(count.Int64())
	if n > len(ex.stack) {
		return errStackUnderflow
	}
	items := make([]script.Item, n)
	for i := range items {
		items[i], _ = ex.pop()
	}
	return ex.push(&script.Array{Items: items})
}

func (ex *execution) arithmetic(op script.Opcode) error {
	bItem, err := ex.pop()
	if err != nil {
		return err
	}
	aItem, err := ex.pop()
	if err != nil {
		return err
	}
	a, err := script.ToBigInt(aItem)
	if err != nil {
		return err
	}
	b, err := script.ToBigInt(bItem)
	if err != nil {
		return err
	}
	result := new(big.Int)
	switch op {
	case script.ADD:
		result.Add(a, b)
	case script.SUB:
		result.Sub(a, b)
	case script.MUL:
		result.Mul(a, b)
	}
	if len(result.Bytes()) > script.MaxIntegerSize {
		return script.ErrIntegerTooLarge
	}
	return ex.push(script.Integer{Value: result})
}

func (ex *execution) syscall(f *frame, id script.Syscall) error {
	switch id {
	case script.CheckWitness:
		b, err := ex.popBytes()
		if err != nil {
			return err
		}
		hash, err := ids.ToShortID(b)
		if err != nil {
			return err
		}
		// Outside of a transaction only the override can witness.
		return ex.push(script.Boolean(ex.override.Contains(hash)))
	case script.GetHeight:
		return ex.push(script.Integer{Value: new(big.Int).SetUint64(ex.height)})
	case script.StorageGet:
		key, err := ex.popBytes()
		if err != nil {
			return err
		}
		value, err := ex.store.GetStorage(ex.ctx, f.scriptHash, key)
		switch {
		case errors.Is(err, database.ErrNotFound):
			return ex.push(script.Null{})
		case err != nil:
			return &storeError{err: err}
		}
		return ex.push(script.ByteString(value))
	default:
		return fmt.Errorf("%w: 0x%02x", errUnknownSyscall, byte(id))
	}
}

func (ex *execution) appCall(hash ids.ShortID) error {
	if len(ex.frames) >= maxFrameDepth {
		return errFrameOverflow
	}
	contract, err := ex.store.GetContract(ex.ctx, hash)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %s", errUnknownContract, hash)
	case err != nil:
		return &storeError{err: err}
	}
	ex.frames = append(ex.frames, &frame{code: contract.Script, scriptHash: contract.Hash})
	return nil
}
