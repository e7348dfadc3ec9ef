// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package facade

import (
	"context"
	"errors"
	"strings"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
	log "github.com/inconshreveable/log15"
	"golang.org/x/exp/slices"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/script"
)

const (
	DefaultMaxGasInvoke = 100_000
	DefaultAddressHRP   = "local"
)

var (
	errZeroGas  = errors.New("max gas invoke must be positive")
	errEmptyHRP = errors.New("address hrp must be set")
)

type Config struct {
	// MaxGasInvoke bounds every invocation. Callers cannot raise it.
	MaxGasInvoke uint64 `json:"maxGasInvoke"`
	// AddressHRP is the bech32 prefix of rendered and accepted addresses
	AddressHRP string `json:"addressHRP"`
}

func DefaultConfig() Config {
	return Config{
		MaxGasInvoke: DefaultMaxGasInvoke,
		AddressHRP:   DefaultAddressHRP,
	}
}

func (c Config) Verify() error {
	switch {
	case c.MaxGasInvoke == 0:
		return errZeroGas
	case c.AddressHRP == "":
		return errEmptyHRP
	default:
		return nil
	}
}

// Facade answers queries against the node's collaborators. It keeps no state
// between calls and is safe for concurrent use.
type Facade struct {
	config  Config
	backend Backend
	sandbox *Sandbox
	log     log.Logger
}

func New(config Config, backend Backend, logger log.Logger) (*Facade, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	if err := backend.verify(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New("module", "facade")
	}
	return &Facade{
		config:  config,
		backend: backend,
		sandbox: NewSandbox(backend.Engine, config.MaxGasInvoke, logger),
		log:     logger,
	}, nil
}

func (f *Facade) internal(op string, err error) error {
	f.log.Error("collaborator failure", "op", op, "err", err)
	return ErrInternal.WithData(err.Error())
}

func (f *Facade) head(ctx context.Context) (ids.ID, uint64, error) {
	id, height, err := f.backend.State.LastAccepted(ctx)
	if err != nil {
		return ids.Empty, 0, f.internal("LastAccepted", err)
	}
	return id, height, nil
}

// parseScriptHash accepts a bech32 address with the configured HRP or a
// CB58 script hash.
func (f *Facade) parseScriptHash(s string) (ids.ShortID, error) {
	if hash, err := chain.ParseAddress(f.config.AddressHRP, s); err == nil {
		return hash, nil
	}
	hash, err := ids.ShortFromString(s)
	if err != nil {
		return ids.ShortEmpty, ErrMalformedAddress.WithData(s)
	}
	return hash, nil
}

func (f *Facade) BestBlockHash(ctx context.Context) (ids.ID, error) {
	id, _, err := f.head(ctx)
	return id, err
}

func (f *Facade) GetBlockCount(ctx context.Context) (uint64, error) {
	_, height, err := f.head(ctx)
	if err != nil {
		return 0, err
	}
	return height + 1, nil
}

func (f *Facade) GetBlock(ctx context.Context, token string, verbose bool) (*BlockReply, error) {
	key, err := ParseKey(token)
	if err != nil {
		return nil, err
	}
	_, head, err := f.head(ctx)
	if err != nil {
		return nil, err
	}
	blkID, err := f.resolveBlockID(ctx, key, head)
	if err != nil {
		return nil, err
	}
	blk, err := f.backend.State.GetBlock(ctx, blkID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrUnknownBlock
	case err != nil:
		return nil, f.internal("GetBlock", err)
	}
	return f.renderBlock(ctx, blk, verbose, head)
}

func (f *Facade) GetBlockHeader(ctx context.Context, token string, verbose bool) (*HeaderReply, error) {
	key, err := ParseKey(token)
	if err != nil {
		return nil, err
	}
	_, head, err := f.head(ctx)
	if err != nil {
		return nil, err
	}
	blkID, err := f.resolveBlockID(ctx, key, head)
	if err != nil {
		return nil, err
	}
	hdr, err := f.backend.State.GetHeader(ctx, blkID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrUnknownHeader
	case err != nil:
		return nil, f.internal("GetHeader", err)
	}
	return f.renderHeader(ctx, hdr, verbose, head)
}

func (f *Facade) GetBlockHash(ctx context.Context, height uint64) (ids.ID, error) {
	_, head, err := f.head(ctx)
	if err != nil {
		return ids.Empty, err
	}
	return f.resolveBlockID(ctx, HeightKey(height), head)
}

func (f *Facade) GetBlockSysFee(ctx context.Context, height uint64) (uint64, error) {
	_, head, err := f.head(ctx)
	if err != nil {
		return 0, err
	}
	if height > head {
		return 0, ErrInvalidHeight
	}
	fee, err := f.backend.State.GetSystemFee(ctx, height)
	if err != nil {
		return 0, f.internal("GetSystemFee", err)
	}
	return fee, nil
}

func (f *Facade) GetContractState(ctx context.Context, address string) (*ContractReply, error) {
	hash, err := f.parseScriptHash(address)
	if err != nil {
		return nil, err
	}
	contract, err := f.backend.State.GetContract(ctx, hash)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrUnknownContract
	case err != nil:
		return nil, f.internal("GetContract", err)
	}
	addr, err := chain.FormatAddress(f.config.AddressHRP, contract.Hash)
	if err != nil {
		return nil, f.internal("format address", err)
	}
	code, err := encodeHex(contract.Script)
	if err != nil {
		return nil, f.internal("encode script", err)
	}
	return &ContractReply{
		Hash:    contract.Hash,
		Address: addr,
		Script:  code,
		Manifest: ManifestReply{
			Name:    contract.Manifest.Name,
			Methods: contract.Manifest.Methods,
			Storage: contract.Manifest.Storage,
			Payable: contract.Manifest.Payable,
		},
	}, nil
}

// GetRawMempool lists the verified pool. With [includeUnverified] both
// halves come from one pool snapshot and are disjoint.
func (f *Facade) GetRawMempool(ctx context.Context, includeUnverified bool) (*MempoolReply, error) {
	if !includeUnverified {
		return &MempoolReply{Verified: f.backend.Mempool.VerifiedIDs(ctx)}, nil
	}
	_, head, err := f.head(ctx)
	if err != nil {
		return nil, err
	}
	verified, unverified := f.backend.Mempool.Partition(ctx)
	return &MempoolReply{
		Partitioned: true,
		Height:      json.Uint64(head),
		Verified:    verified,
		Unverified:  unverified,
	}, nil
}

// GetRawTransaction looks in accepted blocks first and then in the pool.
func (f *Facade) GetRawTransaction(ctx context.Context, hash string, verbose bool) (*TransactionReply, error) {
	txID, err := parseHash(hash)
	if err != nil {
		return nil, err
	}
	_, head, err := f.head(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := f.backend.State.GetTransaction(ctx, txID)
	switch {
	case err == nil:
		height, err := f.backend.State.GetTransactionHeight(ctx, txID)
		if err != nil {
			return nil, f.internal("GetTransactionHeight", err)
		}
		return f.renderTransaction(ctx, tx, verbose, &height, head)
	case !errors.Is(err, database.ErrNotFound):
		return nil, f.internal("GetTransaction", err)
	}

	tx, ok := f.backend.Mempool.Get(ctx, txID)
	if !ok {
		return nil, ErrUnknownTx
	}
	return f.renderTransaction(ctx, tx, verbose, nil, head)
}

// GetStorage returns a nil value for an unset key.
func (f *Facade) GetStorage(ctx context.Context, address string, keyHex string) (*StorageReply, error) {
	hash, err := f.parseScriptHash(address)
	if err != nil {
		return nil, err
	}
	key, err := formatting.Decode(formatting.HexNC, keyHex)
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	value, err := f.backend.State.GetStorage(ctx, hash, key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return &StorageReply{}, nil
	case err != nil:
		return nil, f.internal("GetStorage", err)
	}
	encoded, err := encodeHex(value)
	if err != nil {
		return nil, f.internal("encode value", err)
	}
	return &StorageReply{Value: &encoded}, nil
}

// GetTransactionHeight fails with ErrUnknownTx for pooled transactions.
func (f *Facade) GetTransactionHeight(ctx context.Context, hash string) (uint64, error) {
	txID, err := parseHash(hash)
	if err != nil {
		return 0, err
	}
	height, err := f.backend.State.GetTransactionHeight(ctx, txID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, ErrUnknownTx
	case err != nil:
		return 0, f.internal("GetTransactionHeight", err)
	}
	return height, nil
}

// GetValidators lists every registered candidate, then any active
// validator that is not a candidate.
func (f *Facade) GetValidators(ctx context.Context) ([]ValidatorReply, error) {
	snapshot, err := f.backend.Governance.Snapshot(ctx)
	if err != nil {
		return nil, f.internal("Snapshot", err)
	}
	active := snapshot.ActiveValidators()
	candidates := snapshot.RegisteredValidators()

	replies := make([]ValidatorReply, 0, len(candidates)+active.Len())
	listed := make(map[chain.PublicKey]struct{}, len(candidates))
	for _, c := range candidates {
		listed[c.PublicKey] = struct{}{}
		replies = append(replies, ValidatorReply{
			PublicKey: c.PublicKey.String(),
			Votes:     json.Uint64(c.Votes),
			Active:    active.Contains(c.PublicKey),
		})
	}

	var unlisted []chain.PublicKey
	for _, key := range active.List() {
		if _, ok := listed[key]; !ok {
			unlisted = append(unlisted, key)
		}
	}
	slices.SortFunc(unlisted, func(a, b chain.PublicKey) bool { return a.Compare(b) < 0 })
	for _, key := range unlisted {
		replies = append(replies, ValidatorReply{PublicKey: key.String(), Active: true})
	}
	return replies, nil
}

func (f *Facade) GetVersion(context.Context) (*VersionReply, error) {
	info := f.backend.Network.NodeInfo()
	return &VersionReply{
		TCPPort:   json.Uint16(info.TCPPort),
		WSPort:    json.Uint16(info.WSPort),
		Nonce:     json.Uint32(info.Nonce),
		UserAgent: info.UserAgent,
	}, nil
}

func (f *Facade) GetConnectionCount(context.Context) (int, error) {
	return f.backend.Network.PeerCount(), nil
}

// GetPeers never reports bad peers.
func (f *Facade) GetPeers(context.Context) (*PeersReply, error) {
	return &PeersReply{
		Unconnected: peerReplies(f.backend.Network.UnconnectedPeers()),
		Bad:         []PeerReply{},
		Connected:   peerReplies(f.backend.Network.ConnectedPeers()),
	}, nil
}

func peerReplies(peers []PeerInfo) []PeerReply {
	replies := make([]PeerReply, len(peers))
	for i, p := range peers {
		replies[i] = PeerReply{Address: p.Address, Port: json.Uint16(p.Port)}
	}
	return replies
}

func (f *Facade) ListPlugins(context.Context) ([]PluginReply, error) {
	exts := f.backend.Extensions.Extensions()
	replies := make([]PluginReply, len(exts))
	for i, ext := range exts {
		interfaces := ext.Interfaces
		if interfaces == nil {
			interfaces = []string{}
		}
		replies[i] = PluginReply{Name: ext.Name, Version: ext.Version, Interfaces: interfaces}
	}
	slices.SortStableFunc(replies, func(a, b PluginReply) bool { return a.Name < b.Name })
	return replies, nil
}

func (f *Facade) InvokeFunction(ctx context.Context, address string, operation string, args []script.Parameter) (*InvokeReply, error) {
	hash, err := f.parseScriptHash(address)
	if err != nil {
		return nil, err
	}
	return f.sandbox.Call(ctx, hash, operation, args)
}

// InvokeScript runs [scriptHex], treating each of [verifying] as a witness.
func (f *Facade) InvokeScript(ctx context.Context, scriptHex string, verifying []string) (*InvokeReply, error) {
	code, err := formatting.Decode(formatting.HexNC, scriptHex)
	if err != nil {
		return nil, ErrInvalidScript.WithData(err.Error())
	}
	var override *IdentityOverride
	if len(verifying) > 0 {
		signers := make([]ids.ShortID, len(verifying))
		for i, addr := range verifying {
			signers[i], err = f.parseScriptHash(addr)
			if err != nil {
				return nil, err
			}
		}
		override = NewIdentityOverride(signers...)
	}
	return f.sandbox.Run(ctx, code, override)
}

func (f *Facade) SendRawTransaction(ctx context.Context, txHex string) (*RelayReply, error) {
	b, err := formatting.Decode(formatting.HexNC, txHex)
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	tx, err := chain.ParseTransaction(b)
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	outcome := f.backend.Network.RelayTransaction(ctx, tx)
	if outcome != RelaySucceeded {
		f.log.Debug("transaction relay rejected", "txID", tx.ID(), "outcome", outcome)
	}
	return MapRelayOutcome(outcome, tx.ID())
}

func (f *Facade) SubmitBlock(ctx context.Context, blockHex string) (*RelayReply, error) {
	b, err := formatting.Decode(formatting.HexNC, blockHex)
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	blk, err := chain.ParseBlock(b)
	if err != nil {
		return nil, ErrInvalidParams.WithData(err.Error())
	}
	outcome := f.backend.Network.RelayBlock(ctx, blk)
	if outcome != RelaySucceeded {
		f.log.Debug("block relay rejected", "blkID", blk.ID(), "outcome", outcome)
	}
	return MapRelayOutcome(outcome, blk.ID())
}

// ValidateAddress only checks the address format and prefix.
func (f *Facade) ValidateAddress(_ context.Context, address string) (*ValidateAddressReply, error) {
	_, err := chain.ParseAddress(f.config.AddressHRP, strings.TrimSpace(address))
	return &ValidateAddressReply{Address: address, IsValid: err == nil}, nil
}
