package effect

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

// NetworkRequest is a request handled by the network component.
type NetworkRequest interface {
	fmt.Stringer
	isNetworkRequest()
}

// SendMessageRequest sends Payload to a single peer.
type SendMessageRequest struct {
	Dest      types.NodeID
	Payload   protocol.Message
	Responder Responder[struct{}]
}

// BroadcastRequest sends Payload to every connected peer.
type BroadcastRequest struct {
	Payload   protocol.Message
	Responder Responder[struct{}]
}

// GossipRequest sends Payload to Count random peers not in Exclude. The
// responder receives the peers actually chosen.
type GossipRequest struct {
	Payload   protocol.Message
	Count     int
	Exclude   map[types.NodeID]struct{}
	Responder Responder[[]types.NodeID]
}

func (SendMessageRequest) isNetworkRequest() {}
func (BroadcastRequest) isNetworkRequest()   {}
func (GossipRequest) isNetworkRequest()      {}

func (r SendMessageRequest) String() string {
	return fmt.Sprintf("send %s to %s", r.Payload, r.Dest)
}

func (r BroadcastRequest) String() string {
	return fmt.Sprintf("broadcast %s", r.Payload)
}

func (r GossipRequest) String() string {
	return fmt.Sprintf("gossip %s to %d peers", r.Payload, r.Count)
}

// StorageRequest is a request handled by the storage component.
type StorageRequest interface {
	fmt.Stringer
	isStorageRequest()
}

// PutBlockRequest stores a block. The responder receives false if the block
// was already present.
type PutBlockRequest struct {
	Block     *types.Block
	Responder Responder[bool]
}

// GetBlockRequest reads a block by hash; the answer is nil if absent.
type GetBlockRequest struct {
	Hash      types.BlockHash
	Responder Responder[*types.Block]
}

// GetBlockAtHeightRequest reads the linear-chain block at Height.
type GetBlockAtHeightRequest struct {
	Height    uint64
	Responder Responder[*types.Block]
}

// GetHighestBlockRequest reads the highest stored block.
type GetHighestBlockRequest struct {
	Responder Responder[*types.Block]
}

// PutDeployRequest stores a deploy. The responder receives false if the
// deploy was already present.
type PutDeployRequest struct {
	Deploy    *types.Deploy
	Responder Responder[bool]
}

// GetDeploysRequest reads deploys by hash. The answer has one entry per hash,
// nil where the deploy is absent.
type GetDeploysRequest struct {
	Hashes    []types.DeployHash
	Responder Responder[[]*types.Deploy]
}

// PutExecutionResultsRequest stores the results of executing a block.
type PutExecutionResultsRequest struct {
	BlockHash types.BlockHash
	Results   []types.ExecutionResult
	Responder Responder[struct{}]
}

// GetExecutionResultRequest reads the execution result of a deploy.
type GetExecutionResultRequest struct {
	DeployHash types.DeployHash
	Responder  Responder[*types.ExecutionResult]
}

func (PutBlockRequest) isStorageRequest()            {}
func (GetBlockRequest) isStorageRequest()            {}
func (GetBlockAtHeightRequest) isStorageRequest()    {}
func (GetHighestBlockRequest) isStorageRequest()     {}
func (PutDeployRequest) isStorageRequest()           {}
func (GetDeploysRequest) isStorageRequest()          {}
func (PutExecutionResultsRequest) isStorageRequest() {}
func (GetExecutionResultRequest) isStorageRequest()  {}

func (r PutBlockRequest) String() string { return fmt.Sprintf("put %s", r.Block) }
func (r GetBlockRequest) String() string { return fmt.Sprintf("get %s", r.Hash) }
func (r GetBlockAtHeightRequest) String() string {
	return fmt.Sprintf("get block at height %d", r.Height)
}
func (r GetHighestBlockRequest) String() string { return "get highest block" }
func (r PutDeployRequest) String() string       { return fmt.Sprintf("put %s", r.Deploy) }
func (r GetDeploysRequest) String() string {
	return fmt.Sprintf("get %d deploys", len(r.Hashes))
}
func (r PutExecutionResultsRequest) String() string {
	return fmt.Sprintf("put %d execution results for %s", len(r.Results), r.BlockHash)
}
func (r GetExecutionResultRequest) String() string {
	return fmt.Sprintf("get execution result for %s", r.DeployHash)
}

// FetchResult is the answer to a FetcherRequest. Item is only meaningful when
// Found is true.
type FetchResult[T any] struct {
	Item   T
	Source types.Source
	Found  bool
}

// FetcherRequest asks the fetcher for items of type T to find the item
// identified by ID, first locally and then from Peer.
type FetcherRequest[I comparable, T any] struct {
	ID        I
	Peer      types.NodeID
	Responder Responder[FetchResult[T]]
}

func (r FetcherRequest[I, T]) String() string {
	return fmt.Sprintf("fetch %v from %s", r.ID, r.Peer)
}

// BlockValidationRequest asks the block validator to check that every deploy
// of Block is available, fetching missing ones from Sender.
type BlockValidationRequest[T any] struct {
	Block     T
	Sender    types.NodeID
	Responder Responder[bool]
}

func (r BlockValidationRequest[T]) String() string {
	return fmt.Sprintf("validate %v from %s", r.Block, r.Sender)
}

// ExecuteBlockRequest asks the block executor to execute a linear-chain
// block. The answer is the block once executed and appended, nil if the
// execution did not reproduce the block's post-state.
type ExecuteBlockRequest struct {
	Block     *types.Block
	Responder Responder[*types.Block]
}

func (r ExecuteBlockRequest) String() string {
	return fmt.Sprintf("execute %s", r.Block)
}

// ContractRuntimeRequest is a request handled by the contract runtime.
type ContractRuntimeRequest interface {
	fmt.Stringer
	isContractRuntimeRequest()
}

// ExecuteRequest runs Deploys on top of PreState.
type ExecuteRequest struct {
	PreState  crypto.Digest
	Deploys   []*types.Deploy
	Responder Responder[types.ExecutionOutcome]
}

func (ExecuteRequest) isContractRuntimeRequest() {}

func (r ExecuteRequest) String() string {
	return fmt.Sprintf("execute %d deploys on %s", len(r.Deploys), r.PreState)
}

// LinearChainRequest is a request handled by the linear chain.
type LinearChainRequest interface {
	fmt.Stringer
	isLinearChainRequest()
}

// LinearChainBlockRequest is a peer asking for a block by hash.
type LinearChainBlockRequest struct {
	Hash   types.BlockHash
	Sender types.NodeID
}

// LinearChainBlockAtHeightRequest is a peer asking for the block at a height.
type LinearChainBlockAtHeightRequest struct {
	Height uint64
	Sender types.NodeID
}

func (LinearChainBlockRequest) isLinearChainRequest()         {}
func (LinearChainBlockAtHeightRequest) isLinearChainRequest() {}

func (r LinearChainBlockRequest) String() string {
	return fmt.Sprintf("%s requests %s", r.Sender, r.Hash)
}

func (r LinearChainBlockAtHeightRequest) String() string {
	return fmt.Sprintf("%s requests block at height %d", r.Sender, r.Height)
}

// ConsensusRequest is a request handled by consensus.
type ConsensusRequest interface {
	fmt.Stringer
	isConsensusRequest()
}

// HandleLinearChainBlockRequest informs consensus that a linear-chain block
// has been executed. Consensus answers with a Handled announcement.
type HandleLinearChainBlockRequest struct {
	Header *types.BlockHeader
}

func (HandleLinearChainBlockRequest) isConsensusRequest() {}

func (r HandleLinearChainBlockRequest) String() string {
	return fmt.Sprintf("handle linear chain block #%d", r.Header.Height)
}

// DeployBufferRequest is a request handled by the deploy buffer.
type DeployBufferRequest interface {
	fmt.Stringer
	isDeployBufferRequest()
}

// ProtoBlockRequest asks the deploy buffer for deploys to include in a new
// proposal, excluding those already in PastDeploys.
type ProtoBlockRequest struct {
	Timestamp   types.Timestamp
	PastDeploys map[types.DeployHash]struct{}
	Random      bool
	Responder   Responder[*types.ProtoBlock]
}

func (ProtoBlockRequest) isDeployBufferRequest() {}

func (r ProtoBlockRequest) String() string {
	return fmt.Sprintf("request proto-block at %s", r.Timestamp)
}
