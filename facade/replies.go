// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	stdjson "encoding/json"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/queryvm/script"
)

// Rendered is either the hex of an entity's canonical bytes or its verbose
// view. It marshals as a bare string in the first case.
type Rendered[T any] struct {
	Raw     string
	Verbose *T
}

func (r Rendered[T]) MarshalJSON() ([]byte, error) {
	if r.Verbose != nil {
		return stdjson.Marshal(r.Verbose)
	}
	return stdjson.Marshal(r.Raw)
}

func (r *Rendered[T]) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		r.Verbose = nil
		return stdjson.Unmarshal(b, &r.Raw)
	}
	r.Raw = ""
	r.Verbose = new(T)
	return stdjson.Unmarshal(b, r.Verbose)
}

type (
	BlockReply       = Rendered[VerboseBlock]
	HeaderReply      = Rendered[VerboseHeader]
	TransactionReply = Rendered[VerboseTransaction]
)

type VerboseHeader struct {
	Hash              ids.ID      `json:"hash"`
	Size              json.Uint32 `json:"size"`
	Index             json.Uint64 `json:"index"`
	PreviousBlockHash ids.ID      `json:"previousblockhash"`
	Time              json.Uint64 `json:"time"`
	MerkleRoot        ids.ID      `json:"merkleroot"`
	NextConsensus     string      `json:"nextconsensus"`
	Confirmations     json.Uint64 `json:"confirmations"`
	NextBlockHash     *ids.ID     `json:"nextblockhash,omitempty"`
}

type VerboseBlock struct {
	VerboseHeader
	Tx []VerboseTransaction `json:"tx"`
}

type VerboseWitness struct {
	Invocation   string `json:"invocation"`
	Verification string `json:"verification"`
}

type VerboseTransaction struct {
	Hash            ids.ID           `json:"hash"`
	Size            json.Uint32      `json:"size"`
	Nonce           json.Uint32      `json:"nonce"`
	Sender          string           `json:"sender"`
	SysFee          json.Uint64      `json:"sysfee"`
	NetFee          json.Uint64      `json:"netfee"`
	ValidUntilBlock json.Uint64      `json:"validuntilblock"`
	Signers         []string         `json:"signers"`
	Script          string           `json:"script"`
	Witnesses       []VerboseWitness `json:"witnesses"`

	// Set only once the transaction is in an accepted block
	BlockHash     *ids.ID      `json:"blockhash,omitempty"`
	Confirmations *json.Uint64 `json:"confirmations,omitempty"`
	BlockTime     *json.Uint64 `json:"blocktime,omitempty"`
}

type ManifestReply struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods"`
	Storage bool     `json:"storage"`
	Payable bool     `json:"payable"`
}

type ContractReply struct {
	Hash     ids.ShortID   `json:"hash"`
	Address  string        `json:"address"`
	Script   string        `json:"script"`
	Manifest ManifestReply `json:"manifest"`
}

// MempoolReply marshals as an array of hashes unless it was partitioned.
type MempoolReply struct {
	Partitioned bool
	Height      json.Uint64
	Verified    []ids.ID
	Unverified  []ids.ID
}

type partitionedMempool struct {
	Height     json.Uint64 `json:"height"`
	Verified   []ids.ID    `json:"verified"`
	Unverified []ids.ID    `json:"unverified"`
}

func (r MempoolReply) MarshalJSON() ([]byte, error) {
	verified := nonNil(r.Verified)
	if !r.Partitioned {
		return stdjson.Marshal(verified)
	}
	return stdjson.Marshal(partitionedMempool{
		Height:     r.Height,
		Verified:   verified,
		Unverified: nonNil(r.Unverified),
	})
}

func (r *MempoolReply) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		*r = MempoolReply{}
		return stdjson.Unmarshal(b, &r.Verified)
	}
	var p partitionedMempool
	if err := stdjson.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = MempoolReply{
		Partitioned: true,
		Height:      p.Height,
		Verified:    p.Verified,
		Unverified:  p.Unverified,
	}
	return nil
}

func nonNil(s []ids.ID) []ids.ID {
	if s == nil {
		return []ids.ID{}
	}
	return s
}

// StorageReply holds the hex of a stored value, or nil if the key is unset.
type StorageReply struct {
	Value *string `json:"value"`
}

// Markers replacing a result stack that cannot be rendered.
const (
	RecursiveReferenceMarker = "error: recursive reference"
	ResultTooLargeMarker     = "error: result too large"
)

// ResultStack marshals as a list of parameters, or as Err when set.
type ResultStack struct {
	Items []script.Parameter
	Err   string
}

func (s ResultStack) MarshalJSON() ([]byte, error) {
	if s.Err != "" {
		return stdjson.Marshal(s.Err)
	}
	if s.Items == nil {
		return []byte("[]"), nil
	}
	return stdjson.Marshal(s.Items)
}

func (s *ResultStack) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s.Items = nil
		return stdjson.Unmarshal(b, &s.Err)
	}
	s.Err = ""
	return stdjson.Unmarshal(b, &s.Items)
}

type InvokeReply struct {
	Script      string         `json:"script"`
	State       script.VMState `json:"state"`
	GasConsumed json.Uint64    `json:"gas_consumed"`
	Stack       ResultStack    `json:"stack"`
	Exception   string         `json:"exception,omitempty"`
}

type ValidatorReply struct {
	PublicKey string      `json:"publickey"`
	Votes     json.Uint64 `json:"votes"`
	Active    bool        `json:"active"`
}

type VersionReply struct {
	TCPPort   json.Uint16 `json:"tcpport"`
	WSPort    json.Uint16 `json:"wsport"`
	Nonce     json.Uint32 `json:"nonce"`
	UserAgent string      `json:"useragent"`
}

type PeerReply struct {
	Address string      `json:"address"`
	Port    json.Uint16 `json:"port"`
}

type PeersReply struct {
	Unconnected []PeerReply `json:"unconnected"`
	Bad         []PeerReply `json:"bad"`
	Connected   []PeerReply `json:"connected"`
}

type PluginReply struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Interfaces []string `json:"interfaces"`
}

type ValidateAddressReply struct {
	Address string `json:"address"`
	IsValid bool   `json:"isvalid"`
}

type RelayReply struct {
	Hash ids.ID `json:"hash"`
}
