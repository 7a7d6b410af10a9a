// Package linearchainsync tracks the progress of a joining node catching up
// with the linear chain.
//
// Starting from a trusted block hash, the tracker downloads the trusted block
// and its ancestors back to genesis, executes them oldest first, and then
// downloads descendants by height until no peer has the next one. The node is
// synchronized once that happens, or at once if no trusted hash was given.
package linearchainsync

import (
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// State of the sync tracker.
type State int

const (
	// None means there was no trusted hash: nothing to sync.
	None State = iota
	// SyncingTrustedHash downloads and executes the trusted block and its
	// ancestors.
	SyncingTrustedHash
	// SyncingDescendants downloads and executes blocks above the trusted one.
	SyncingDescendants
	// Done means no peer has a block higher than our highest.
	Done
)

// String ...
func (s State) String() string {
	switch s {
	case None:
		return "None"
	case SyncingTrustedHash:
		return "SyncingTrustedHash"
	case SyncingDescendants:
		return "SyncingDescendants"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// LinearChainSync is the sync tracker component.
type LinearChainSync struct {
	state       State
	trustedHash *types.BlockHash

	peers      []types.NodeID
	peersToTry []types.NodeID
	fetching   bool

	// next block to download going down to genesis, nil once reached
	wanted *types.BlockHash

	// downloaded blocks not executed yet, newest first
	pending  []*types.Block
	sources  map[types.BlockHash]types.NodeID
	awaiting *types.Block

	lastHash   types.BlockHash
	lastHeight uint64
	executed   int

	logger *logrus.Entry
}

// New returns a tracker syncing to trustedHash, or an already synced tracker
// if trustedHash is nil.
func New(trustedHash *types.BlockHash, logger *logrus.Entry) *LinearChainSync {
	state := None
	if trustedHash != nil {
		state = SyncingTrustedHash
	}
	return &LinearChainSync{
		state:       state,
		trustedHash: trustedHash,
		wanted:      trustedHash,
		sources:     make(map[types.BlockHash]types.NodeID),
		logger:      logger.WithField("component", "linear_chain_sync"),
	}
}

// IsSynced reports whether the tracker reached a terminal state.
func (l *LinearChainSync) IsSynced() bool {
	return l.state == None || l.state == Done
}

// State returns the current state.
func (l *LinearChainSync) State() State {
	return l.state
}

// Executed returns the number of blocks executed and handled so far.
func (l *LinearChainSync) Executed() int {
	return l.executed
}

// HandleEvent implements reactor.Component.
func (l *LinearChainSync) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case NewPeerConnected:
		return l.newPeer(eb, rng, e.Peer)
	case GetBlockHashResult:
		return l.blockHashResult(eb, rng, e)
	case GetBlockHeightResult:
		return l.blockHeightResult(eb, rng, e)
	case BlockValidated:
		return l.blockValidated(eb, rng, e)
	case BlockExecuted:
		return l.blockExecuted(eb, e)
	case BlockHandled:
		return l.blockHandled(eb, rng, e.Height)
	default:
		l.logger.WithField("event", ev.String()).Error("Unknown sync event")
		return nil
	}
}

func (l *LinearChainSync) newPeer(eb effect.Builder, rng *rand.Rand, peer types.NodeID) effect.Effects[Event] {
	for _, p := range l.peers {
		if p == peer {
			return nil
		}
	}
	l.peers = append(l.peers, peer)
	l.peersToTry = append(l.peersToTry, peer)

	if l.state != SyncingTrustedHash || l.fetching || l.awaiting != nil || l.wanted == nil {
		return nil
	}

	l.logger.WithFields(logrus.Fields{
		"peer":    peer,
		"hash":    *l.wanted,
		"trusted": *l.wanted == *l.trustedHash,
	}).Info("Fetching block")

	return l.fetchBlock(eb, *l.wanted, l.takePeer(rng, &peer))
}

func (l *LinearChainSync) blockHashResult(eb effect.Builder, rng *rand.Rand, e GetBlockHashResult) effect.Effects[Event] {
	l.fetching = false

	block := e.Result.Item
	if !e.Result.Found || block == nil || block.Hash != e.Hash {
		peer, ok := l.nextPeer(rng)
		if !ok {
			l.logger.WithField("hash", e.Hash).Warn("No peer has the block, waiting for new peers")
			return nil
		}
		return l.fetchBlock(eb, e.Hash, peer)
	}

	if source, ok := e.Result.Source.NodeID(); ok {
		l.sources[block.Hash] = source
	}
	l.pending = append(l.pending, block)

	if block.Header.IsGenesisChild() {
		l.wanted = nil
		l.logger.WithField("blocks", len(l.pending)).Info("Downloaded chain down to genesis")
		return l.executeNext(eb, rng)
	}

	parent := block.Header.ParentHash
	l.wanted = &parent

	l.resetPeersToTry()
	peer, ok := e.Result.Source.NodeID()
	if !ok {
		peer = l.takePeer(rng, nil)
	}
	return l.fetchBlock(eb, parent, peer)
}

func (l *LinearChainSync) blockHeightResult(eb effect.Builder, rng *rand.Rand, e GetBlockHeightResult) effect.Effects[Event] {
	l.fetching = false

	if e.Result.Found && e.Result.Item != nil && !e.Result.Item.IsAbsent() {
		block := e.Result.Item.Block
		if block.Height() == e.Height && block.Header.ParentHash == l.lastHash {
			if source, ok := e.Result.Source.NodeID(); ok {
				l.sources[block.Hash] = source
			}
			l.pending = append(l.pending, block)
			return l.executeNext(eb, rng)
		}
		l.logger.WithFields(logrus.Fields{
			"peer":  e.Peer,
			"block": block,
		}).Warn("Peer sent a block that does not extend our chain")
	}

	peer, ok := l.nextPeer(rng)
	if !ok {
		l.state = Done
		l.logger.WithFields(logrus.Fields{
			"height":   l.lastHeight,
			"executed": l.executed,
		}).Info("Synchronized with the linear chain")
		return nil
	}
	return l.fetchHeight(eb, e.Height, peer)
}

func (l *LinearChainSync) executeNext(eb effect.Builder, rng *rand.Rand) effect.Effects[Event] {
	if len(l.pending) == 0 {
		return nil
	}
	block := l.pending[len(l.pending)-1]
	return l.validate(eb, rng, block)
}

func (l *LinearChainSync) validate(eb effect.Builder, rng *rand.Rand, block *types.Block) effect.Effects[Event] {
	peer, ok := l.sources[block.Hash]
	if !ok {
		peer = l.takePeer(rng, nil)
	}
	return effect.Event(
		eb.ValidateBlock(block, peer),
		func(valid bool) Event { return BlockValidated{Block: block, Valid: valid} },
	)
}

func (l *LinearChainSync) blockValidated(eb effect.Builder, rng *rand.Rand, e BlockValidated) effect.Effects[Event] {
	if !e.Valid {
		l.logger.WithField("block", e.Block).Warn("Block failed validation, retrying with another peer")
		delete(l.sources, e.Block.Hash)
		return l.validate(eb, rng, e.Block)
	}

	block := e.Block
	return effect.Event(
		eb.ExecuteBlock(block),
		func(executed *types.Block) Event { return BlockExecuted{Requested: block, Executed: executed} },
	)
}

func (l *LinearChainSync) blockExecuted(eb effect.Builder, e BlockExecuted) effect.Effects[Event] {
	if e.Executed == nil {
		l.logger.WithField("block", e.Requested).Error("Block execution failed, cannot make progress")
		return nil
	}

	l.pending = l.pending[:len(l.pending)-1]
	l.awaiting = e.Executed
	return effect.Ignore[Event](eb.HandleLinearChainBlock(&e.Executed.Header))
}

func (l *LinearChainSync) blockHandled(eb effect.Builder, rng *rand.Rand, height uint64) effect.Effects[Event] {
	if l.awaiting == nil || l.awaiting.Height() != height {
		l.logger.WithField("height", height).Debug("Ignoring handled block we are not waiting for")
		return nil
	}

	l.lastHash = l.awaiting.Hash
	l.lastHeight = height
	l.executed++
	l.awaiting = nil
	delete(l.sources, l.lastHash)

	if len(l.pending) > 0 {
		return l.executeNext(eb, rng)
	}

	if l.state == SyncingTrustedHash {
		l.logger.WithField("height", height).Info("Trusted block handled, syncing descendants")
		l.state = SyncingDescendants
	}
	if l.state != SyncingDescendants {
		return nil
	}

	l.resetPeersToTry()
	return l.fetchHeight(eb, height+1, l.takePeer(rng, nil))
}

func (l *LinearChainSync) fetchBlock(eb effect.Builder, hash types.BlockHash, peer types.NodeID) effect.Effects[Event] {
	l.fetching = true
	return effect.Event(
		eb.FetchBlock(hash, peer),
		func(r effect.FetchResult[*types.Block]) Event {
			return GetBlockHashResult{Hash: hash, Peer: peer, Result: r}
		},
	)
}

func (l *LinearChainSync) fetchHeight(eb effect.Builder, height uint64, peer types.NodeID) effect.Effects[Event] {
	l.fetching = true
	return effect.Event(
		eb.FetchBlockByHeight(height, peer),
		func(r effect.FetchResult[*types.BlockByHeight]) Event {
			return GetBlockHeightResult{Height: height, Peer: peer, Result: r}
		},
	)
}

func (l *LinearChainSync) resetPeersToTry() {
	l.peersToTry = append(l.peersToTry[:0], l.peers...)
}

// takePeer removes and returns preferred from the peers to try if given,
// or a random one otherwise. With nobody left to try, any known peer will do.
func (l *LinearChainSync) takePeer(rng *rand.Rand, preferred *types.NodeID) types.NodeID {
	if preferred != nil {
		for i, p := range l.peersToTry {
			if p == *preferred {
				l.peersToTry = append(l.peersToTry[:i], l.peersToTry[i+1:]...)
				break
			}
		}
		return *preferred
	}
	if peer, ok := l.nextPeer(rng); ok {
		return peer
	}
	if len(l.peers) == 0 {
		return types.NodeID{}
	}
	i := 0
	if rng != nil {
		i = rng.Intn(len(l.peers))
	}
	return l.peers[i]
}

// nextPeer removes and returns a random peer from the peers to try.
func (l *LinearChainSync) nextPeer(rng *rand.Rand) (types.NodeID, bool) {
	if len(l.peersToTry) == 0 {
		return types.NodeID{}, false
	}
	i := 0
	if rng != nil {
		i = rng.Intn(len(l.peersToTry))
	}
	peer := l.peersToTry[i]
	l.peersToTry = append(l.peersToTry[:i], l.peersToTry[i+1:]...)
	return peer, true
}
