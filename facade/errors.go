// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import "errors"

// Code is a stable numeric error code. Codes are never renumbered.
type Code int

const (
	CodeInvalidHeight       Code = -100
	CodeNotFound            Code = -101
	CodeMalformedHash       Code = -102
	CodeInvalidScript       Code = -103
	CodeMalformedAddress    Code = -104
	CodeRelayUnknown        Code = -500
	CodeRelayDuplicate      Code = -501
	CodeRelayPoolFull       Code = -502
	CodeRelayUnverifiable   Code = -503
	CodeRelayInvalid        Code = -504
	CodeRelayPolicyRejected Code = -505
	CodeInvalidParams       Code = -32602
	CodeInternal            Code = -32603
)

// Error is returned by every Facade operation that fails.
type Error struct {
	Code    Code
	Message string
	Data    interface{}
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code, so the not-found variants all
// match ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithData returns a copy of [e] carrying [data].
func (e *Error) WithData(data interface{}) *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

// AsError returns the *Error in [err]'s chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrInvalidHeight    = &Error{Code: CodeInvalidHeight, Message: "Invalid height"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "Not found"}
	ErrUnknownBlock     = &Error{Code: CodeNotFound, Message: "Unknown block"}
	ErrUnknownHeader    = &Error{Code: CodeNotFound, Message: "Unknown header"}
	ErrUnknownTx        = &Error{Code: CodeNotFound, Message: "Unknown transaction"}
	ErrUnknownContract  = &Error{Code: CodeNotFound, Message: "Unknown contract"}
	ErrMalformedHash    = &Error{Code: CodeMalformedHash, Message: "Malformed hash"}
	ErrInvalidScript    = &Error{Code: CodeInvalidScript, Message: "Invalid script"}
	ErrMalformedAddress = &Error{Code: CodeMalformedAddress, Message: "Malformed address"}

	ErrRelayUnknown        = &Error{Code: CodeRelayUnknown, Message: "Unknown error."}
	ErrRelayDuplicate      = &Error{Code: CodeRelayDuplicate, Message: "Block or transaction already exists and cannot be sent repeatedly."}
	ErrRelayPoolFull       = &Error{Code: CodeRelayPoolFull, Message: "The memory pool is full and no more transactions can be sent."}
	ErrRelayUnverifiable   = &Error{Code: CodeRelayUnverifiable, Message: "The block cannot be validated."}
	ErrRelayInvalid        = &Error{Code: CodeRelayInvalid, Message: "Block or transaction validation failed."}
	ErrRelayPolicyRejected = &Error{Code: CodeRelayPolicyRejected, Message: "One of the Policy filters failed."}

	ErrInvalidParams = &Error{Code: CodeInvalidParams, Message: "Invalid params"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "Internal error"}
)
