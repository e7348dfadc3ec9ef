// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"
	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/queryvm/script"
)

const errGasLimitExceeded = "gas limit exceeded"

// Sandbox runs untrusted scripts on the engine under a fixed gas limit.
type Sandbox struct {
	engine   Engine
	gasLimit uint64
	log      log.Logger
}

func NewSandbox(engine Engine, gasLimit uint64, logger log.Logger) *Sandbox {
	if logger == nil {
		logger = log.New("module", "sandbox")
	}
	return &Sandbox{
		engine:   engine,
		gasLimit: gasLimit,
		log:      logger,
	}
}

// GasLimit returns the ceiling every run is held to.
func (s *Sandbox) GasLimit() uint64 { return s.gasLimit }

// Call builds a script invoking [operation] of [contract] and runs it like
// Run, without an override.
func (s *Sandbox) Call(ctx context.Context, contract ids.ShortID, operation string, args []script.Parameter) (*InvokeReply, error) {
	code, err := script.NewBuilder().EmitAppCall(contract, operation, args...).Script()
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	return s.Run(ctx, code, nil)
}

// Run executes [code]. Signers in [override] count as witnesses for this run
// only.
func (s *Sandbox) Run(ctx context.Context, code []byte, override *IdentityOverride) (*InvokeReply, error) {
	if len(code) == 0 {
		return nil, ErrInvalidScript
	}
	outcome, err := s.engine.Run(ctx, code, override, s.gasLimit)
	if err != nil {
		s.log.Error("engine run failed", "err", err)
		return nil, ErrInternal.WithData(err.Error())
	}

	state := outcome.State
	exception := outcome.FaultException
	gas := outcome.GasConsumed
	if gas > s.gasLimit {
		state = script.FAULT
		exception = errGasLimitExceeded
		gas = s.gasLimit
	}

	raw, err := encodeHex(code)
	if err != nil {
		return nil, ErrInternal.WithData(err.Error())
	}
	stack, err := formatStack(outcome.Stack)
	if err != nil {
		return nil, ErrInternal.WithData(err.Error())
	}
	return &InvokeReply{
		Script:      raw,
		State:       state,
		GasConsumed: json.Uint64(gas),
		Stack:       stack,
		Exception:   exception,
	}, nil
}

// formatStack degrades to a marker string rather than failing the call when
// the stack is recursive or too large to render.
func formatStack(items []script.Item) (ResultStack, error) {
	params, err := script.ToParameters(items)
	switch {
	case errors.Is(err, script.ErrRecursiveReference):
		return ResultStack{Err: RecursiveReferenceMarker}, nil
	case errors.Is(err, script.ErrResultTooLarge):
		return ResultStack{Err: ResultTooLargeMarker}, nil
	case err != nil:
		return ResultStack{}, err
	}
	return ResultStack{Items: params}, nil
}
