// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
)

const blockCacheSize = 8192

var (
	// Each index lives under its own prefix so keys of equal bytes never
	// collide across indices.
	singletonStatePrefix = []byte("singleton")
	blockStatePrefix     = []byte("block")
	heightStatePrefix    = []byte("height")
	txStatePrefix        = []byte("tx")
	txHeightStatePrefix  = []byte("txHeight")
	feeStatePrefix       = []byte("fee")
	contractStatePrefix  = []byte("contract")
	storageStatePrefix   = []byte("storage")

	isInitializedKey = []byte{0}
	lastAcceptedKey  = []byte{1}

	errNotInitialized = errors.New("store is not initialized")
	errNotNextHeight  = errors.New("block does not extend the last accepted block")

	_ facade.State = (*Store)(nil)
)

// Store is the node's chain state on top of a versioned database. Writes are
// only visible to readers once committed together with the new head.
type Store struct {
	lock sync.RWMutex

	baseDB      *versiondb.Database
	singletonDB database.Database
	blockDB     database.Database
	heightDB    database.Database
	txDB        database.Database
	txHeightDB  database.Database
	feeDB       database.Database
	contractDB  database.Database
	storageDB   database.Database

	blkCache cache.Cacher[ids.ID, *chain.Block]

	lastAccepted       ids.ID
	lastAcceptedHeight uint64
}

// NewStore wraps [db]. The block cache reports its hit rate to [registerer]
// under [namespace].
func NewStore(db database.Database, namespace string, registerer prometheus.Registerer) (*Store, error) {
	blkCache, err := metercacher.New[ids.ID, *chain.Block](
		namespace+"_block_cache",
		registerer,
		&cache.LRU[ids.ID, *chain.Block]{Size: blockCacheSize},
	)
	if err != nil {
		return nil, err
	}

	baseDB := versiondb.New(db)
	s := &Store{
		baseDB:      baseDB,
		singletonDB: prefixdb.New(singletonStatePrefix, baseDB),
		blockDB:     prefixdb.New(blockStatePrefix, baseDB),
		heightDB:    prefixdb.New(heightStatePrefix, baseDB),
		txDB:        prefixdb.New(txStatePrefix, baseDB),
		txHeightDB:  prefixdb.New(txHeightStatePrefix, baseDB),
		feeDB:       prefixdb.New(feeStatePrefix, baseDB),
		contractDB:  prefixdb.New(contractStatePrefix, baseDB),
		storageDB:   prefixdb.New(storageStatePrefix, baseDB),
		blkCache:    blkCache,
	}

	initialized, err := s.IsInitialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		return s, nil
	}
	s.lastAccepted, err = database.GetID(s.singletonDB, lastAcceptedKey)
	if err != nil {
		return nil, err
	}
	blk, err := s.getBlock(s.lastAccepted)
	if err != nil {
		return nil, err
	}
	s.lastAcceptedHeight = blk.Height()
	return s, nil
}

func (s *Store) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

// Initialize writes the genesis block and deploys [contracts] with their
// initial [storage].
func (s *Store) Initialize(genesis *chain.Block, contracts []*chain.Contract, storage map[ids.ShortID]map[string][]byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.initialize(genesis, contracts, storage); err != nil {
		s.baseDB.Abort()
		return err
	}
	s.setLastAccepted(genesis)
	return nil
}

func (s *Store) initialize(genesis *chain.Block, contracts []*chain.Contract, storage map[ids.ShortID]map[string][]byte) error {
	for _, c := range contracts {
		b, err := c.Bytes()
		if err != nil {
			return err
		}
		if err := s.contractDB.Put(c.Hash[:], b); err != nil {
			return err
		}
	}
	for contract, entries := range storage {
		for k, v := range entries {
			if err := s.storageDB.Put(storageKey(contract, []byte(k)), v); err != nil {
				return err
			}
		}
	}
	if err := s.putBlock(genesis, 0); err != nil {
		return err
	}
	if err := s.singletonDB.Put(isInitializedKey, nil); err != nil {
		return err
	}
	return s.commit()
}

// Accept persists [blk] as the new chain head. [blk] must extend the
// current head. The head only moves once the block is committed.
func (s *Store) Accept(blk *chain.Block) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if blk.Parent() != s.lastAccepted || blk.Height() != s.lastAcceptedHeight+1 {
		return fmt.Errorf("%w: %s at height %d", errNotNextHeight, blk.ID(), blk.Height())
	}
	if err := s.accept(blk); err != nil {
		s.baseDB.Abort()
		return err
	}
	s.setLastAccepted(blk)
	return nil
}

func (s *Store) accept(blk *chain.Block) error {
	prevFee, err := database.GetUInt64(s.feeDB, database.PackUInt64(s.lastAcceptedHeight))
	if err != nil {
		return err
	}
	if err := s.putBlock(blk, prevFee); err != nil {
		return err
	}
	return s.commit()
}

func (s *Store) putBlock(blk *chain.Block, prevFee uint64) error {
	blkID := blk.ID()
	height := blk.Height()
	if err := s.blockDB.Put(blkID[:], blk.Bytes()); err != nil {
		return err
	}
	if err := database.PutID(s.heightDB, database.PackUInt64(height), blkID); err != nil {
		return err
	}

	fee := prevFee
	txs := blk.Transactions()
	for i := range txs {
		txID := txs[i].ID()
		if err := s.txDB.Put(txID[:], txs[i].Bytes()); err != nil {
			return err
		}
		if err := database.PutUInt64(s.txHeightDB, txID[:], height); err != nil {
			return err
		}
		fee += txs[i].SysFee
	}
	if err := database.PutUInt64(s.feeDB, database.PackUInt64(height), fee); err != nil {
		return err
	}
	return database.PutID(s.singletonDB, lastAcceptedKey, blkID)
}

func (s *Store) setLastAccepted(blk *chain.Block) {
	blkID := blk.ID()
	s.blkCache.Put(blkID, blk)
	s.lastAccepted = blkID
	s.lastAcceptedHeight = blk.Height()
}

// commit commits pending operations to baseDB
func (s *Store) commit() error {
	return s.baseDB.Commit()
}

// Close closes the underlying base database
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.blkCache.Flush()
	return s.baseDB.Close()
}

func (s *Store) LastAccepted(context.Context) (ids.ID, uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.lastAccepted == ids.Empty {
		return ids.Empty, 0, errNotInitialized
	}
	return s.lastAccepted, s.lastAcceptedHeight, nil
}

func (s *Store) GetBlockIDAtHeight(_ context.Context, height uint64) (ids.ID, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return database.GetID(s.heightDB, database.PackUInt64(height))
}

func (s *Store) GetBlock(_ context.Context, blkID ids.ID) (*chain.Block, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.getBlock(blkID)
}

func (s *Store) getBlock(blkID ids.ID) (*chain.Block, error) {
	if blk, ok := s.blkCache.Get(blkID); ok {
		return blk, nil
	}
	b, err := s.blockDB.Get(blkID[:])
	if err != nil {
		return nil, err
	}
	blk, err := chain.ParseBlock(b)
	if err != nil {
		return nil, err
	}
	s.blkCache.Put(blkID, blk)
	return blk, nil
}

func (s *Store) HasBlock(blkID ids.ID) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.blockDB.Has(blkID[:])
}

func (s *Store) GetHeader(_ context.Context, blkID ids.ID) (*chain.Header, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	blk, err := s.getBlock(blkID)
	if err != nil {
		return nil, err
	}
	return blk.Header(), nil
}

// GetNextBlockID reads the block and the height index under one lock.
func (s *Store) GetNextBlockID(_ context.Context, blkID ids.ID) (ids.ID, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	blk, err := s.getBlock(blkID)
	if err != nil {
		return ids.Empty, err
	}
	if blk.Height() >= s.lastAcceptedHeight {
		return ids.Empty, database.ErrNotFound
	}
	return database.GetID(s.heightDB, database.PackUInt64(blk.Height()+1))
}

func (s *Store) GetTransaction(_ context.Context, txID ids.ID) (*chain.Transaction, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, err := s.txDB.Get(txID[:])
	if err != nil {
		return nil, err
	}
	return chain.ParseTransaction(b)
}

func (s *Store) HasTransaction(txID ids.ID) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.txDB.Has(txID[:])
}

func (s *Store) GetTransactionHeight(_ context.Context, txID ids.ID) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return database.GetUInt64(s.txHeightDB, txID[:])
}

func (s *Store) GetContract(_ context.Context, hash ids.ShortID) (*chain.Contract, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, err := s.contractDB.Get(hash[:])
	if err != nil {
		return nil, err
	}
	return chain.ParseContract(b)
}

func (s *Store) GetStorage(_ context.Context, contract ids.ShortID, key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.storageDB.Get(storageKey(contract, key))
}

func (s *Store) GetSystemFee(_ context.Context, height uint64) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return database.GetUInt64(s.feeDB, database.PackUInt64(height))
}

func storageKey(contract ids.ShortID, key []byte) []byte {
	k := make([]byte, 0, len(contract)+len(key))
	k = append(k, contract[:]...)
	return append(k, key...)
}
