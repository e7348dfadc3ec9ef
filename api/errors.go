// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"github.com/gorilla/rpc/v2/json2"

	"github.com/ava-labs/queryvm/facade"
)

// toRPCError keeps the code of a *facade.Error. Anything else is reported as
// an internal error.
func toRPCError(err error) *json2.Error {
	if e, ok := facade.AsError(err); ok {
		return &json2.Error{
			Code:    json2.ErrorCode(e.Code),
			Message: e.Message,
			Data:    e.Data,
		}
	}
	return &json2.Error{
		Code:    json2.E_INTERNAL,
		Message: facade.ErrInternal.Message,
		Data:    err.Error(),
	}
}
