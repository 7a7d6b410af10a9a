package storage

import (
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

const (
	blockPrefix   = "block"
	heightPrefix  = "height"
	deployPrefix  = "deploy"
	resultPrefix  = "exec"
	highestKeyStr = "highest"
)

// BadgerStore implements the Store interface on top of a Badger database.
// Blocks and deploys read from the database are kept in LRU caches.
type BadgerStore struct {
	db          *badger.DB
	path        string
	blockCache  *lru.Cache
	deployCache *lru.Cache
	logger      *logrus.Entry
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	blockCache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	deployCache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:          handle,
		path:        path,
		blockCache:  blockCache,
		deployCache: deployCache,
		logger:      logger,
	}
	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func blockKey(hash types.BlockHash) []byte {
	return []byte(fmt.Sprintf("%s_%s", blockPrefix, hash.Hex()))
}

func heightKey(height uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d", heightPrefix, height))
}

func deployKey(hash types.DeployHash) []byte {
	return []byte(fmt.Sprintf("%s_%s", deployPrefix, hash.Hex()))
}

func resultKey(hash types.DeployHash) []byte {
	return []byte(fmt.Sprintf("%s_%s", resultPrefix, hash.Hex()))
}

func highestKey() []byte {
	return []byte(highestKeyStr)
}

func heightString(height uint64) string {
	return strconv.FormatUint(height, 10)
}

/*******************************************************************************
Implement the Store interface
*******************************************************************************/

// PutBlock stores the block, indexes it by height, and bumps the highest
// height if needed, in a single transaction.
func (s *BadgerStore) PutBlock(block *types.Block) (bool, error) {
	val, err := types.Encode(block)
	if err != nil {
		return false, err
	}

	inserted := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := blockKey(block.Hash)

		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !isDBKeyNotFound(err) {
			return err
		}

		//insert [block_hash] => [block bytes]
		if err := txn.Set(key, val); err != nil {
			return err
		}

		//insert [height_n] => [hash]
		if err := txn.Set(heightKey(block.Height()), block.Hash[:]); err != nil {
			return err
		}

		highest, ok, err := getHighest(txn)
		if err != nil {
			return err
		}
		if !ok || block.Height() > highest {
			if err := txn.Set(highestKey(), []byte(heightString(block.Height()))); err != nil {
				return err
			}
		}

		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if inserted {
		s.blockCache.Add(block.Hash, block)
	}
	return inserted, nil
}

// GetBlock implements the Store interface.
func (s *BadgerStore) GetBlock(hash types.BlockHash) (*types.Block, error) {
	if cached, ok := s.blockCache.Get(hash); ok {
		return cached.(*types.Block), nil
	}

	block, err := s.dbGetBlock(hash)
	if err != nil {
		return nil, mapError(err, "block", hash.Hex())
	}

	s.blockCache.Add(hash, block)
	return block, nil
}

// GetBlockAtHeight implements the Store interface.
func (s *BadgerStore) GetBlockAtHeight(height uint64) (*types.Block, error) {
	var hash types.BlockHash
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(heightKey(height))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		copy(hash[:], raw)
		return nil
	})
	if err != nil {
		return nil, mapError(err, "block at height", heightString(height))
	}

	return s.GetBlock(hash)
}

// GetHighestBlock implements the Store interface.
func (s *BadgerStore) GetHighestBlock() (*types.Block, error) {
	var (
		highest uint64
		ok      bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		highest, ok, err = getHighest(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storeError("block", Empty, highestKeyStr)
	}

	return s.GetBlockAtHeight(highest)
}

// PutDeploy implements the Store interface.
func (s *BadgerStore) PutDeploy(deploy *types.Deploy) (bool, error) {
	val, err := types.Encode(deploy)
	if err != nil {
		return false, err
	}

	inserted := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := deployKey(deploy.Hash)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !isDBKeyNotFound(err) {
			return err
		}
		inserted = true
		return txn.Set(key, val)
	})
	if err != nil {
		return false, err
	}

	if inserted {
		s.deployCache.Add(deploy.Hash, deploy)
	}
	return inserted, nil
}

// GetDeploy implements the Store interface.
func (s *BadgerStore) GetDeploy(hash types.DeployHash) (*types.Deploy, error) {
	if cached, ok := s.deployCache.Get(hash); ok {
		return cached.(*types.Deploy), nil
	}

	raw, err := s.dbGet(deployKey(hash))
	if err != nil {
		return nil, mapError(err, "deploy", hash.Hex())
	}

	deploy := new(types.Deploy)
	if err := types.Decode(raw, deploy); err != nil {
		return nil, err
	}

	s.deployCache.Add(hash, deploy)
	return deploy, nil
}

// PutExecutionResults writes every result in a single transaction.
func (s *BadgerStore) PutExecutionResults(hash types.BlockHash, results []types.ExecutionResult) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	for _, r := range results {
		val, err := types.Encode(r)
		if err != nil {
			return err
		}
		if err := tx.Set(resultKey(r.DeployHash), val); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetExecutionResult implements the Store interface.
func (s *BadgerStore) GetExecutionResult(hash types.DeployHash) (*types.ExecutionResult, error) {
	raw, err := s.dbGet(resultKey(hash))
	if err != nil {
		return nil, mapError(err, "execution result", hash.Hex())
	}

	result := new(types.ExecutionResult)
	if err := types.Decode(raw, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the path of the database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbGet(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

func (s *BadgerStore) dbGetBlock(hash types.BlockHash) (*types.Block, error) {
	blockBytes, err := s.dbGet(blockKey(hash))
	if err != nil {
		return nil, err
	}

	block := new(types.Block)
	if err := types.Decode(blockBytes, block); err != nil {
		return nil, err
	}

	return block, nil
}

func getHighest(txn *badger.Txn) (uint64, bool, error) {
	item, err := txn.Get(highestKey())
	if isDBKeyNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	h, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return h, true, nil
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return storeError(name, NotFound, key)
		}
	}
	return err
}
