package linearchainsync

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is the sync tracker's event type.
type Event interface {
	fmt.Stringer
	isLinearChainSyncEvent()
}

// NewPeerConnected offers a new peer to download blocks from.
type NewPeerConnected struct {
	Peer types.NodeID
}

// GetBlockHashResult carries the outcome of fetching a block by hash.
type GetBlockHashResult struct {
	Hash   types.BlockHash
	Peer   types.NodeID
	Result effect.FetchResult[*types.Block]
}

// GetBlockHeightResult carries the outcome of fetching a block by height.
type GetBlockHeightResult struct {
	Height uint64
	Peer   types.NodeID
	Result effect.FetchResult[*types.BlockByHeight]
}

// BlockValidated carries the outcome of validating a downloaded block.
type BlockValidated struct {
	Block *types.Block
	Valid bool
}

// BlockExecuted carries the outcome of executing a downloaded block.
// Executed is nil if execution failed.
type BlockExecuted struct {
	Requested *types.Block
	Executed  *types.Block
}

// BlockHandled signals that consensus processed the block at Height.
type BlockHandled struct {
	Height uint64
}

func (NewPeerConnected) isLinearChainSyncEvent()     {}
func (GetBlockHashResult) isLinearChainSyncEvent()   {}
func (GetBlockHeightResult) isLinearChainSyncEvent() {}
func (BlockValidated) isLinearChainSyncEvent()       {}
func (BlockExecuted) isLinearChainSyncEvent()        {}
func (BlockHandled) isLinearChainSyncEvent()         {}

func (e NewPeerConnected) String() string {
	return fmt.Sprintf("new peer connected: %s", e.Peer)
}

func (e GetBlockHashResult) String() string {
	return fmt.Sprintf("get %s from %s: found=%t", e.Hash, e.Peer, e.Result.Found)
}

func (e GetBlockHeightResult) String() string {
	return fmt.Sprintf("get block at height %d from %s: found=%t", e.Height, e.Peer, e.Result.Found)
}

func (e BlockValidated) String() string {
	return fmt.Sprintf("%s validated: %t", e.Block, e.Valid)
}

func (e BlockExecuted) String() string {
	return fmt.Sprintf("%s executed: %t", e.Requested, e.Executed != nil)
}

func (e BlockHandled) String() string {
	return fmt.Sprintf("block handled at height %d", e.Height)
}
