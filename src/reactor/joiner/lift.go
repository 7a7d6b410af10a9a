package joiner

import (
	"github.com/mosaicnetworks/joiner/src/components/blockexecutor"
	"github.com/mosaicnetworks/joiner/src/components/blockvalidator"
	"github.com/mosaicnetworks/joiner/src/components/consensus"
	"github.com/mosaicnetworks/joiner/src/components/contractruntime"
	"github.com/mosaicnetworks/joiner/src/components/gossiper"
	"github.com/mosaicnetworks/joiner/src/components/linearchain"
	"github.com/mosaicnetworks/joiner/src/components/linearchainsync"
	"github.com/mosaicnetworks/joiner/src/components/network"
	"github.com/mosaicnetworks/joiner/src/components/storage"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Lift converts anything a component can put on the queue through the effect
// builder into exactly one Event. It is the reactor.LiftFunc of the joiner.
//
// Fetcher native events are absent: they only ever travel as effect results,
// which are already wrapped.
func Lift(v interface{}) (Event, bool) {
	switch ev := v.(type) {
	case Event:
		return ev, true

	// requests
	case effect.NetworkRequest:
		return NetworkEvent{network.Request{Request: ev}}, true
	case effect.StorageRequest:
		return StorageEvent{storage.Event{Request: ev}}, true
	case effect.FetcherRequest[types.BlockHash, *types.Block]:
		return BlockFetcherRequest{ev}, true
	case effect.FetcherRequest[uint64, *types.BlockByHeight]:
		return BlockByHeightFetcherRequest{ev}, true
	case effect.FetcherRequest[types.DeployHash, *types.Deploy]:
		return DeployFetcherRequest{ev}, true
	case effect.BlockValidationRequest[*types.Block]:
		return BlockValidatorRequest{ev}, true
	case effect.BlockValidationRequest[*types.ProtoBlock]:
		return ProtoBlockValidatorRequest{ev}, true
	case effect.ExecuteBlockRequest:
		return BlockExecutorRequest{ev}, true
	case effect.ContractRuntimeRequest:
		return ContractRuntimeEvent{contractruntime.Event{Request: ev}}, true
	case effect.LinearChainRequest:
		return LinearChainEvent{linearchain.Request{Request: ev}}, true
	case effect.ConsensusRequest:
		return ConsensusEvent{consensus.Request{Request: ev}}, true
	case effect.DeployBufferRequest:
		return DeployBufferRequest{ev}, true

	// announcements
	case effect.NetworkAnnouncement:
		return NetworkAnnouncement{ev}, true
	case effect.LinearChainBlock:
		return BlockExecutorAnnouncement{ev}, true
	case effect.ConsensusAnnouncement:
		return ConsensusAnnouncement{ev}, true
	case effect.NewCompleteItem[types.GossipedAddress]:
		return AddressGossiperAnnouncement{ev}, true

	// native events raised outside of effects
	case network.Event:
		return NetworkEvent{ev}, true
	case linearchainsync.Event:
		return LinearChainSyncEvent{ev}, true
	case gossiper.Event:
		return AddressGossiperEvent{ev}, true
	case blockvalidator.Event:
		return BlockValidatorEvent{ev}, true
	case blockexecutor.Event:
		return BlockExecutorEvent{ev}, true
	case linearchain.Event:
		return LinearChainEvent{ev}, true
	case consensus.Event:
		return ConsensusEvent{ev}, true

	default:
		return nil, false
	}
}
