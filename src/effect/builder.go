package effect

import (
	"context"
	"time"

	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

// QueueKind selects the event queue an event is scheduled on.
type QueueKind int

const (
	// QueueNetworkIncoming holds messages received from peers.
	QueueNetworkIncoming QueueKind = iota
	// QueueNetwork holds network requests and connection events.
	QueueNetwork
	// QueueRegular holds everything else.
	QueueRegular
	// QueueAPI holds requests from local clients.
	QueueAPI
)

// QueueKinds lists every QueueKind in the order the runner cycles through
// them.
var QueueKinds = []QueueKind{QueueNetworkIncoming, QueueNetwork, QueueRegular, QueueAPI}

// String ...
func (k QueueKind) String() string {
	switch k {
	case QueueNetworkIncoming:
		return "NetworkIncoming"
	case QueueNetwork:
		return "Network"
	case QueueRegular:
		return "Regular"
	case QueueAPI:
		return "API"
	default:
		return "Unknown"
	}
}

// Scheduler accepts events for the reactor. Implementations convert ev into
// the reactor's own event type; the ev values passed here are the requests
// and announcements of this package and the native events of components.
type Scheduler interface {
	Schedule(ev interface{}, kind QueueKind)
}

// Builder is handed to every component on every dispatch. It is cheap to copy.
type Builder struct {
	scheduler Scheduler
}

// NewBuilder ...
func NewBuilder(s Scheduler) Builder {
	return Builder{scheduler: s}
}

// Schedule puts an event directly on the queue. Components use it from their
// own goroutines, such as connection readers, to raise native events.
func (b Builder) Schedule(ev interface{}, kind QueueKind) {
	b.scheduler.Schedule(ev, kind)
}

func request[T any](b Builder, kind QueueKind, build func(Responder[T]) interface{}) Future[T] {
	return func(ctx context.Context) (T, error) {
		r := NewResponder[T]()
		b.scheduler.Schedule(build(r), kind)
		return r.Wait(ctx)
	}
}

func announce(b Builder, kind QueueKind, ann interface{}) Future[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		b.scheduler.Schedule(ann, kind)
		return struct{}{}, nil
	}
}

// Immediately resolves at once.
func (b Builder) Immediately() Future[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	}
}

// SetTimeout resolves after d with the time actually slept.
func (b Builder) SetTimeout(d time.Duration) Future[time.Duration] {
	return func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return time.Since(start), nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// SendMessage sends msg to dest. Resolves once the message has been handed
// to the connection, not when it was received.
func (b Builder) SendMessage(dest types.NodeID, msg protocol.Message) Future[struct{}] {
	return request(b, QueueNetwork, func(r Responder[struct{}]) interface{} {
		return SendMessageRequest{Dest: dest, Payload: msg, Responder: r}
	})
}

// Broadcast sends msg to every connected peer.
func (b Builder) Broadcast(msg protocol.Message) Future[struct{}] {
	return request(b, QueueNetwork, func(r Responder[struct{}]) interface{} {
		return BroadcastRequest{Payload: msg, Responder: r}
	})
}

// Gossip sends msg to up to count random peers outside exclude and resolves
// to the peers chosen.
func (b Builder) Gossip(msg protocol.Message, count int, exclude map[types.NodeID]struct{}) Future[[]types.NodeID] {
	return request(b, QueueNetwork, func(r Responder[[]types.NodeID]) interface{} {
		return GossipRequest{Payload: msg, Count: count, Exclude: exclude, Responder: r}
	})
}

// AnnounceNewPeer ...
func (b Builder) AnnounceNewPeer(peer types.NodeID) Future[struct{}] {
	return announce(b, QueueNetwork, NewPeer{Peer: peer})
}

// AnnounceGossipOurAddress ...
func (b Builder) AnnounceGossipOurAddress(addr types.GossipedAddress) Future[struct{}] {
	return announce(b, QueueRegular, GossipOurAddress{Address: addr})
}

// AnnounceMessageReceived ...
func (b Builder) AnnounceMessageReceived(sender types.NodeID, msg protocol.Message) Future[struct{}] {
	return announce(b, QueueNetworkIncoming, MessageReceived{Sender: sender, Payload: msg})
}

// PutBlock stores block and resolves to false if it was already stored.
func (b Builder) PutBlock(block *types.Block) Future[bool] {
	return request(b, QueueRegular, func(r Responder[bool]) interface{} {
		return PutBlockRequest{Block: block, Responder: r}
	})
}

// GetBlock resolves to the stored block with the given hash, or nil.
func (b Builder) GetBlock(hash types.BlockHash) Future[*types.Block] {
	return request(b, QueueRegular, func(r Responder[*types.Block]) interface{} {
		return GetBlockRequest{Hash: hash, Responder: r}
	})
}

// GetBlockAtHeight resolves to the stored block at height, or nil.
func (b Builder) GetBlockAtHeight(height uint64) Future[*types.Block] {
	return request(b, QueueRegular, func(r Responder[*types.Block]) interface{} {
		return GetBlockAtHeightRequest{Height: height, Responder: r}
	})
}

// GetHighestBlock resolves to the highest stored block, or nil.
func (b Builder) GetHighestBlock() Future[*types.Block] {
	return request(b, QueueRegular, func(r Responder[*types.Block]) interface{} {
		return GetHighestBlockRequest{Responder: r}
	})
}

// PutDeploy stores deploy and resolves to false if it was already stored.
func (b Builder) PutDeploy(deploy *types.Deploy) Future[bool] {
	return request(b, QueueRegular, func(r Responder[bool]) interface{} {
		return PutDeployRequest{Deploy: deploy, Responder: r}
	})
}

// GetDeploys resolves to one entry per hash, nil where absent.
func (b Builder) GetDeploys(hashes []types.DeployHash) Future[[]*types.Deploy] {
	return request(b, QueueRegular, func(r Responder[[]*types.Deploy]) interface{} {
		return GetDeploysRequest{Hashes: hashes, Responder: r}
	})
}

// PutExecutionResults ...
func (b Builder) PutExecutionResults(hash types.BlockHash, results []types.ExecutionResult) Future[struct{}] {
	return request(b, QueueRegular, func(r Responder[struct{}]) interface{} {
		return PutExecutionResultsRequest{BlockHash: hash, Results: results, Responder: r}
	})
}

// GetExecutionResult resolves to the stored result of a deploy, or nil.
func (b Builder) GetExecutionResult(hash types.DeployHash) Future[*types.ExecutionResult] {
	return request(b, QueueRegular, func(r Responder[*types.ExecutionResult]) interface{} {
		return GetExecutionResultRequest{DeployHash: hash, Responder: r}
	})
}

// Fetch asks the fetcher of items of type T for the item identified by id,
// trying local storage first and then peer.
func Fetch[I comparable, T any](b Builder, id I, peer types.NodeID) Future[FetchResult[T]] {
	return request(b, QueueRegular, func(r Responder[FetchResult[T]]) interface{} {
		return FetcherRequest[I, T]{ID: id, Peer: peer, Responder: r}
	})
}

// FetchBlock ...
func (b Builder) FetchBlock(hash types.BlockHash, peer types.NodeID) Future[FetchResult[*types.Block]] {
	return Fetch[types.BlockHash, *types.Block](b, hash, peer)
}

// FetchBlockByHeight ...
func (b Builder) FetchBlockByHeight(height uint64, peer types.NodeID) Future[FetchResult[*types.BlockByHeight]] {
	return Fetch[uint64, *types.BlockByHeight](b, height, peer)
}

// FetchDeploy ...
func (b Builder) FetchDeploy(hash types.DeployHash, peer types.NodeID) Future[FetchResult[*types.Deploy]] {
	return Fetch[types.DeployHash, *types.Deploy](b, hash, peer)
}

// ValidateBlock resolves to true once every deploy of block is available.
func (b Builder) ValidateBlock(block *types.Block, sender types.NodeID) Future[bool] {
	return request(b, QueueRegular, func(r Responder[bool]) interface{} {
		return BlockValidationRequest[*types.Block]{Block: block, Sender: sender, Responder: r}
	})
}

// ValidateProtoBlock resolves to true once every deploy of proto is
// available.
func (b Builder) ValidateProtoBlock(proto *types.ProtoBlock, sender types.NodeID) Future[bool] {
	return request(b, QueueRegular, func(r Responder[bool]) interface{} {
		return BlockValidationRequest[*types.ProtoBlock]{Block: proto, Sender: sender, Responder: r}
	})
}

// ExecuteBlock asks the block executor to execute block.
func (b Builder) ExecuteBlock(block *types.Block) Future[*types.Block] {
	return request(b, QueueRegular, func(r Responder[*types.Block]) interface{} {
		return ExecuteBlockRequest{Block: block, Responder: r}
	})
}

// Execute runs deploys on top of preState in the contract runtime.
func (b Builder) Execute(preState crypto.Digest, deploys []*types.Deploy) Future[types.ExecutionOutcome] {
	return request(b, QueueRegular, func(r Responder[types.ExecutionOutcome]) interface{} {
		return ExecuteRequest{PreState: preState, Deploys: deploys, Responder: r}
	})
}

// HandleLinearChainBlock passes an executed block header to consensus.
func (b Builder) HandleLinearChainBlock(header *types.BlockHeader) Future[struct{}] {
	return announce(b, QueueRegular, HandleLinearChainBlockRequest{Header: header})
}

// AnnounceLinearChainBlock ...
func (b Builder) AnnounceLinearChainBlock(block *types.Block, results []types.ExecutionResult) Future[struct{}] {
	return announce(b, QueueRegular, LinearChainBlock{Block: block, Results: results})
}

// AnnounceBlockHandled ...
func (b Builder) AnnounceBlockHandled(height uint64) Future[struct{}] {
	return announce(b, QueueRegular, Handled{Height: height})
}

// AnnounceConsensus ...
func (b Builder) AnnounceConsensus(ann ConsensusAnnouncement) Future[struct{}] {
	return announce(b, QueueRegular, ann)
}

// AnnounceNewCompleteItem ...
func (b Builder) AnnounceNewCompleteItem(item types.GossipedAddress) Future[struct{}] {
	return announce(b, QueueRegular, NewCompleteItem[types.GossipedAddress]{Item: item})
}

// RequestProtoBlock asks the deploy buffer for a proto-block to propose.
func (b Builder) RequestProtoBlock(ts types.Timestamp, past map[types.DeployHash]struct{}, random bool) Future[*types.ProtoBlock] {
	return request(b, QueueRegular, func(r Responder[*types.ProtoBlock]) interface{} {
		return ProtoBlockRequest{Timestamp: ts, PastDeploys: past, Random: random, Responder: r}
	})
}
