package storage

import (
	"github.com/mosaicnetworks/joiner/src/types"
)

// Store persists the linear chain, deploys and execution results. Every
// implementation is safe for concurrent use. Missing items are reported with
// an *Error of kind NotFound, or Empty for GetHighestBlock on an
// empty store.
type Store interface {
	PutBlock(*types.Block) (bool, error)
	GetBlock(types.BlockHash) (*types.Block, error)
	GetBlockAtHeight(uint64) (*types.Block, error)
	GetHighestBlock() (*types.Block, error)
	PutDeploy(*types.Deploy) (bool, error)
	GetDeploy(types.DeployHash) (*types.Deploy, error)
	PutExecutionResults(types.BlockHash, []types.ExecutionResult) error
	GetExecutionResult(types.DeployHash) (*types.ExecutionResult, error)
	Close() error
	StorePath() string
}
