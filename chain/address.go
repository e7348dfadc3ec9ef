// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting/address"
)

// FormatAddress returns the bech32 address of [scriptHash] under [hrp].
func FormatAddress(hrp string, scriptHash ids.ShortID) (string, error) {
	return address.FormatBech32(hrp, scriptHash[:])
}

// ParseAddress parses a bech32 address and checks that it belongs to [hrp].
func ParseAddress(hrp string, addr string) (ids.ShortID, error) {
	gotHRP, b, err := address.ParseBech32(addr)
	if err != nil {
		return ids.ShortEmpty, err
	}
	if gotHRP != hrp {
		return ids.ShortEmpty, fmt.Errorf("expected hrp %q but got %q", hrp, gotHRP)
	}
	return ids.ToShortID(b)
}
