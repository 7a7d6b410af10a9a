// Package blockexecutor re-executes linear-chain blocks received from peers.
//
// Blocks are executed one at a time, in the order requested, each on top of
// the post-state of the previous one. A block is accepted only if execution
// reproduces the post-state recorded in its header.
package blockexecutor

import (
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Event is the block executor's event type.
type Event interface {
	fmt.Stringer
	isBlockExecutorEvent()
}

// Request asks for a block to be executed.
type Request struct {
	effect.ExecuteBlockRequest
}

// GetDeploysResult carries the deploys of the block being executed.
type GetDeploysResult struct {
	Block   *types.Block
	Deploys []*types.Deploy
}

// ExecutionResult carries the outcome of running the block's deploys.
type ExecutionResult struct {
	Block   *types.Block
	Outcome types.ExecutionOutcome
}

func (Request) isBlockExecutorEvent()          {}
func (GetDeploysResult) isBlockExecutorEvent() {}
func (ExecutionResult) isBlockExecutorEvent()  {}

func (e Request) String() string { return e.ExecuteBlockRequest.String() }
func (e GetDeploysResult) String() string {
	return fmt.Sprintf("got %d deploys for %s", len(e.Deploys), e.Block)
}
func (e ExecutionResult) String() string {
	return fmt.Sprintf("executed %s: %s", e.Block, &e.Outcome)
}

// BlockExecutor is the block executor component.
type BlockExecutor struct {
	postState crypto.Digest

	current *Request
	pending []Request

	logger *logrus.Entry
}

// New returns a BlockExecutor whose first block executes on top of
// genesisPostState.
func New(genesisPostState crypto.Digest, logger *logrus.Entry) *BlockExecutor {
	return &BlockExecutor{
		postState: genesisPostState,
		logger:    logger.WithField("component", "block_executor"),
	}
}

// PostState returns the post-state of the last executed block.
func (b *BlockExecutor) PostState() crypto.Digest {
	return b.postState
}

// HandleEvent implements reactor.Component.
func (b *BlockExecutor) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Request:
		b.pending = append(b.pending, e)
		return b.next(eb)
	case GetDeploysResult:
		return b.deploysReceived(eb, e)
	case ExecutionResult:
		return b.executionFinished(eb, e)
	default:
		b.logger.WithField("event", ev.String()).Error("Unknown block executor event")
		return nil
	}
}

// next starts the next pending request if nothing is executing.
func (b *BlockExecutor) next(eb effect.Builder) effect.Effects[Event] {
	if b.current != nil || len(b.pending) == 0 {
		return nil
	}
	req := b.pending[0]
	b.pending = b.pending[1:]
	b.current = &req

	block := req.Block
	return effect.Event(
		eb.GetDeploys(block.Header.DeployHashes),
		func(deploys []*types.Deploy) Event { return GetDeploysResult{Block: block, Deploys: deploys} },
	)
}

func (b *BlockExecutor) deploysReceived(eb effect.Builder, e GetDeploysResult) effect.Effects[Event] {
	for i, d := range e.Deploys {
		if d == nil {
			b.logger.WithFields(logrus.Fields{
				"block":  e.Block,
				"deploy": e.Block.Header.DeployHashes[i],
			}).Error("Deploy missing from storage")
			return b.fail(eb)
		}
	}

	block := e.Block
	return effect.Event(
		eb.Execute(b.postState, e.Deploys),
		func(o types.ExecutionOutcome) Event { return ExecutionResult{Block: block, Outcome: o} },
	)
}

func (b *BlockExecutor) executionFinished(eb effect.Builder, e ExecutionResult) effect.Effects[Event] {
	if e.Outcome.PostStateHash != e.Block.Header.GlobalStateHash {
		b.logger.WithFields(logrus.Fields{
			"block":    e.Block,
			"expected": e.Block.Header.GlobalStateHash,
			"computed": e.Outcome.PostStateHash,
		}).Error("Post-state mismatch")
		return b.fail(eb)
	}

	b.postState = e.Outcome.PostStateHash

	b.logger.WithFields(logrus.Fields{
		"height":     e.Block.Height(),
		"post_state": b.postState,
	}).Info("Executed block")

	b.current.Responder.Respond(e.Block)
	b.current = nil

	effects := effect.Ignore[Event](eb.AnnounceLinearChainBlock(e.Block, e.Outcome.Results))
	return append(effects, b.next(eb)...)
}

func (b *BlockExecutor) fail(eb effect.Builder) effect.Effects[Event] {
	b.current.Responder.Respond(nil)
	b.current = nil
	return b.next(eb)
}
