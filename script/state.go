// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package script

import (
	"encoding/json"
	"fmt"
)

// VMState is the terminal state of an execution.
type VMState byte

const (
	NONE VMState = iota
	HALT
	FAULT
	BREAK
)

func (s VMState) String() string {
	switch s {
	case NONE:
		return "NONE"
	case HALT:
		return "HALT"
	case FAULT:
		return "FAULT"
	case BREAK:
		return "BREAK"
	default:
		return fmt.Sprintf("VMState(%d)", byte(s))
	}
}

func (s VMState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *VMState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	for _, candidate := range []VMState{NONE, HALT, FAULT, BREAK} {
		if candidate.String() == str {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown vm state %q", str)
}
