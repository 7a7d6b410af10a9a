package storage

import (
	"sync"

	"github.com/mosaicnetworks/joiner/src/types"
)

// InmemStore implements the Store interface with in-memory maps. Nothing is
// ever evicted.
type InmemStore struct {
	sync.RWMutex
	blocks     map[types.BlockHash]*types.Block
	heights    map[uint64]types.BlockHash
	deploys    map[types.DeployHash]*types.Deploy
	results    map[types.DeployHash]types.ExecutionResult
	highest    uint64
	hasHighest bool
	closed     bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		blocks:  make(map[types.BlockHash]*types.Block),
		heights: make(map[uint64]types.BlockHash),
		deploys: make(map[types.DeployHash]*types.Deploy),
		results: make(map[types.DeployHash]types.ExecutionResult),
	}
}

// PutBlock implements the Store interface.
func (s *InmemStore) PutBlock(block *types.Block) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return false, storeError("block", Closed, block.Hash.Hex())
	}

	if _, ok := s.blocks[block.Hash]; ok {
		return false, nil
	}

	s.blocks[block.Hash] = block
	s.heights[block.Height()] = block.Hash
	if !s.hasHighest || block.Height() > s.highest {
		s.highest = block.Height()
		s.hasHighest = true
	}

	return true, nil
}

// GetBlock implements the Store interface.
func (s *InmemStore) GetBlock(hash types.BlockHash) (*types.Block, error) {
	s.RLock()
	defer s.RUnlock()

	block, ok := s.blocks[hash]
	if !ok {
		return nil, storeError("block", NotFound, hash.Hex())
	}
	return block, nil
}

// GetBlockAtHeight implements the Store interface.
func (s *InmemStore) GetBlockAtHeight(height uint64) (*types.Block, error) {
	s.RLock()
	defer s.RUnlock()

	hash, ok := s.heights[height]
	if !ok {
		return nil, storeError("block at height", NotFound, heightString(height))
	}
	return s.blocks[hash], nil
}

// GetHighestBlock implements the Store interface.
func (s *InmemStore) GetHighestBlock() (*types.Block, error) {
	s.RLock()
	defer s.RUnlock()

	if !s.hasHighest {
		return nil, storeError("block", Empty, "highest")
	}
	return s.blocks[s.heights[s.highest]], nil
}

// PutDeploy implements the Store interface.
func (s *InmemStore) PutDeploy(deploy *types.Deploy) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return false, storeError("deploy", Closed, deploy.Hash.Hex())
	}

	if _, ok := s.deploys[deploy.Hash]; ok {
		return false, nil
	}
	s.deploys[deploy.Hash] = deploy
	return true, nil
}

// GetDeploy implements the Store interface.
func (s *InmemStore) GetDeploy(hash types.DeployHash) (*types.Deploy, error) {
	s.RLock()
	defer s.RUnlock()

	deploy, ok := s.deploys[hash]
	if !ok {
		return nil, storeError("deploy", NotFound, hash.Hex())
	}
	return deploy, nil
}

// PutExecutionResults implements the Store interface.
func (s *InmemStore) PutExecutionResults(hash types.BlockHash, results []types.ExecutionResult) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return storeError("execution result", Closed, hash.Hex())
	}

	for _, r := range results {
		s.results[r.DeployHash] = r
	}
	return nil
}

// GetExecutionResult implements the Store interface.
func (s *InmemStore) GetExecutionResult(hash types.DeployHash) (*types.ExecutionResult, error) {
	s.RLock()
	defer s.RUnlock()

	r, ok := s.results[hash]
	if !ok {
		return nil, storeError("execution result", NotFound, hash.Hex())
	}
	return &r, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
