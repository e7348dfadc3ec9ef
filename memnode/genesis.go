// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"math/big"
	"time"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/script"
)

// TokenSupplyKey is the storage key of the token contract's total supply.
const TokenSupplyKey = "supply"

var (
	// GenesisOwner is the only witness the vault contract accepts.
	GenesisOwner = ids.ShortID{0x0a, 0x11, 0xce}

	genesisTime      = time.Unix(1_672_531_200, 0)
	genesisConsensus = ids.ShortID{0xc0, 0x45}
	tokenSupply      = big.NewInt(100_000_000)
)

type GenesisContract struct {
	Script   []byte
	Manifest chain.Manifest
	Storage  map[string][]byte
}

type GenesisCandidate struct {
	PublicKey chain.PublicKey
	Votes     uint64
}

// Genesis is the state a node starts from.
type Genesis struct {
	Timestamp  time.Time
	Consensus  ids.ShortID
	Contracts  []GenesisContract
	Candidates []GenesisCandidate
}

// Block returns the genesis block.
func (g *Genesis) Block() (*chain.Block, error) {
	return chain.NewBlock(ids.Empty, 0, g.Timestamp, g.Consensus, nil)
}

// DefaultGenesis deploys a token contract, a vault contract guarded by
// GenesisOwner, and three validator candidates.
func DefaultGenesis() (*Genesis, error) {
	token, err := TokenScript()
	if err != nil {
		return nil, err
	}
	vault, err := VaultScript(GenesisOwner)
	if err != nil {
		return nil, err
	}

	candidates := make([]GenesisCandidate, 3)
	for i := range candidates {
		candidates[i].PublicKey[0] = 0x02
		candidates[i].PublicKey[32] = byte(i + 1)
		candidates[i].Votes = uint64(3-i) * 1_000
	}

	return &Genesis{
		Timestamp: genesisTime,
		Consensus: genesisConsensus,
		Contracts: []GenesisContract{
			{
				Script:   token,
				Manifest: chain.Manifest{Name: "Token", Methods: []string{"name", "totalSupply"}, Storage: true},
				Storage:  map[string][]byte{TokenSupplyKey: tokenSupply.Bytes()},
			},
			{
				Script:   vault,
				Manifest: chain.Manifest{Name: "Vault", Methods: []string{"withdraw"}, Payable: true},
			},
		},
		Candidates: candidates,
	}, nil
}

// TokenScript answers "name" with its name and any other operation with its
// stored supply. On entry the operation is on top of the packed arguments.
func TokenScript() ([]byte, error) {
	name := []byte("Token")
	// JMPIFNOT, DROP, DROP, PUSHDATA name, RET
	skipName := int16(3 + 1 + 1 + 3 + len(name) + 1)
	return script.NewBuilder().
		Emit(script.DUP).
		EmitPushString("name").
		Emit(script.EQUAL).
		EmitJump(script.JMPIFNOT, skipName).
		Emit(script.DROP).
		Emit(script.DROP).
		EmitPushBytes(name).
		Emit(script.RET).
		Emit(script.DROP).
		Emit(script.DROP).
		EmitPushString(TokenSupplyKey).
		EmitSyscall(script.StorageGet).
		Emit(script.RET).
		Script()
}

// VaultScript returns whether [owner] witnessed the call.
func VaultScript(owner ids.ShortID) ([]byte, error) {
	return script.NewBuilder().
		Emit(script.DROP).
		Emit(script.DROP).
		EmitPushBytes(owner[:]).
		EmitSyscall(script.CheckWitness).
		Emit(script.RET).
		Script()
}
