// Package linearchain keeps the chain of executed blocks and serves it to
// peers.
package linearchain

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Event is the linear chain's event type.
type Event interface {
	fmt.Stringer
	isLinearChainEvent()
}

// Request is a request from a peer.
type Request struct {
	Request effect.LinearChainRequest
}

// NewLinearChainBlock appends an executed block.
type NewLinearChainBlock struct {
	Block   *types.Block
	Results []types.ExecutionResult
}

func (Request) isLinearChainEvent()             {}
func (NewLinearChainBlock) isLinearChainEvent() {}

func (e Request) String() string { return e.Request.String() }
func (e NewLinearChainBlock) String() string {
	return fmt.Sprintf("linear chain block %s", e.Block)
}

// LinearChain is the linear chain component.
type LinearChain struct {
	chain  []*types.Block
	logger *logrus.Entry
}

// New ...
func New(logger *logrus.Entry) *LinearChain {
	return &LinearChain{
		logger: logger.WithField("component", "linear_chain"),
	}
}

// LinearChain returns a copy of the chain.
func (l *LinearChain) LinearChain() []*types.Block {
	c := make([]*types.Block, len(l.chain))
	copy(c, l.chain)
	return c
}

// HandleEvent implements reactor.Component.
func (l *LinearChain) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case NewLinearChainBlock:
		return l.append(eb, e)
	case Request:
		return l.serve(eb, e.Request)
	default:
		l.logger.WithField("event", ev.String()).Error("Unknown linear chain event")
		return nil
	}
}

func (l *LinearChain) append(eb effect.Builder, e NewLinearChainBlock) effect.Effects[Event] {
	if n := len(l.chain); n > 0 && l.chain[n-1].Hash != e.Block.Header.ParentHash {
		l.logger.WithFields(logrus.Fields{
			"block": e.Block,
			"tip":   l.chain[n-1],
		}).Warn("Block does not extend the chain tip")
	}
	l.chain = append(l.chain, e.Block)

	l.logger.WithField("height", e.Block.Height()).Debug("Appended block")

	effects := effect.Ignore[Event](eb.PutBlock(e.Block))
	return append(effects, effect.Ignore[Event](eb.PutExecutionResults(e.Block.Hash, e.Results))...)
}

func (l *LinearChain) serve(eb effect.Builder, req effect.LinearChainRequest) effect.Effects[Event] {
	switch r := req.(type) {
	case effect.LinearChainBlockRequest:
		getBlock := eb.GetBlock(r.Hash)
		return effect.Effects[Event]{
			func(ctx context.Context) []Event {
				block, err := getBlock(ctx)
				if err != nil || block == nil {
					return nil
				}
				l.reply(ctx, eb, r.Sender, types.TagBlock, block)
				return nil
			},
		}
	case effect.LinearChainBlockAtHeightRequest:
		getBlock := eb.GetBlockAtHeight(r.Height)
		return effect.Effects[Event]{
			func(ctx context.Context) []Event {
				block, err := getBlock(ctx)
				if err != nil {
					return nil
				}
				item := types.AbsentBlockByHeight(r.Height)
				if block != nil {
					item = types.NewBlockByHeight(block)
				}
				l.reply(ctx, eb, r.Sender, types.TagBlockByHeight, item)
				return nil
			},
		}
	default:
		l.logger.WithField("request", req.String()).Error("Unknown linear chain request")
		return nil
	}
}

func (l *LinearChain) reply(ctx context.Context, eb effect.Builder, peer types.NodeID, tag types.Tag, item interface{}) {
	msg, err := protocol.NewGetResponse(tag, item)
	if err != nil {
		l.logger.WithError(err).Error("Failed to serialize response")
		return
	}
	eb.SendMessage(peer, msg)(ctx)
}
