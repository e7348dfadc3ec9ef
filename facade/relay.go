// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// RelayOutcome is the network's decision on a submitted transaction or
// block.
type RelayOutcome byte

const (
	RelaySucceeded RelayOutcome = iota
	RelayAlreadyExists
	RelayPoolFull
	RelayUnableToVerify
	RelayInvalid
	RelayPolicyRejected
	RelayUnknown
)

func (o RelayOutcome) String() string {
	switch o {
	case RelaySucceeded:
		return "Succeeded"
	case RelayAlreadyExists:
		return "AlreadyExists"
	case RelayPoolFull:
		return "PoolFull"
	case RelayUnableToVerify:
		return "UnableToVerify"
	case RelayInvalid:
		return "Invalid"
	case RelayPolicyRejected:
		return "PolicyRejected"
	case RelayUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("RelayOutcome(%d)", byte(o))
	}
}

// MapRelayOutcome returns the reply for [outcome] when relaying [id]. Every
// outcome other than RelaySucceeded yields an error and no reply.
func MapRelayOutcome(outcome RelayOutcome, id ids.ID) (*RelayReply, error) {
	switch outcome {
	case RelaySucceeded:
		return &RelayReply{Hash: id}, nil
	case RelayAlreadyExists:
		return nil, ErrRelayDuplicate
	case RelayPoolFull:
		return nil, ErrRelayPoolFull
	case RelayUnableToVerify:
		return nil, ErrRelayUnverifiable
	case RelayInvalid:
		return nil, ErrRelayInvalid
	case RelayPolicyRejected:
		return nil, ErrRelayPolicyRejected
	default:
		return nil, ErrRelayUnknown
	}
}
