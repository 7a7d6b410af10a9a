package joiner

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/components/blockexecutor"
	"github.com/mosaicnetworks/joiner/src/components/blockvalidator"
	"github.com/mosaicnetworks/joiner/src/components/consensus"
	"github.com/mosaicnetworks/joiner/src/components/contractruntime"
	"github.com/mosaicnetworks/joiner/src/components/fetcher"
	"github.com/mosaicnetworks/joiner/src/components/gossiper"
	"github.com/mosaicnetworks/joiner/src/components/linearchain"
	"github.com/mosaicnetworks/joiner/src/components/linearchainsync"
	"github.com/mosaicnetworks/joiner/src/components/network"
	"github.com/mosaicnetworks/joiner/src/components/storage"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is every input of the joiner reactor. The set of implementations is
// closed: one struct per component event, request and announcement.
type Event interface {
	fmt.Stringer
	isJoinerEvent()
}

// Native events of the fetchers, one type per item kind.
type (
	blockFetcherEvent         = fetcher.Event[types.BlockHash, *types.Block]
	blockByHeightFetcherEvent = fetcher.Event[uint64, *types.BlockByHeight]
	deployFetcherEvent        = fetcher.Event[types.DeployHash, *types.Deploy]
)

// Component events.

// NetworkEvent ...
type NetworkEvent struct{ Event network.Event }

// StorageEvent ...
type StorageEvent struct{ Event storage.Event }

// BlockFetcherEvent ...
type BlockFetcherEvent struct{ Event blockFetcherEvent }

// BlockByHeightFetcherEvent ...
type BlockByHeightFetcherEvent struct{ Event blockByHeightFetcherEvent }

// DeployFetcherEvent ...
type DeployFetcherEvent struct{ Event deployFetcherEvent }

// BlockValidatorEvent ...
type BlockValidatorEvent struct{ Event blockvalidator.Event }

// LinearChainSyncEvent ...
type LinearChainSyncEvent struct{ Event linearchainsync.Event }

// BlockExecutorEvent ...
type BlockExecutorEvent struct{ Event blockexecutor.Event }

// ContractRuntimeEvent ...
type ContractRuntimeEvent struct{ Event contractruntime.Event }

// LinearChainEvent ...
type LinearChainEvent struct{ Event linearchain.Event }

// ConsensusEvent ...
type ConsensusEvent struct{ Event consensus.Event }

// AddressGossiperEvent ...
type AddressGossiperEvent struct{ Event gossiper.Event }

// Requests.

// BlockFetcherRequest ...
type BlockFetcherRequest struct {
	Request effect.FetcherRequest[types.BlockHash, *types.Block]
}

// BlockByHeightFetcherRequest ...
type BlockByHeightFetcherRequest struct {
	Request effect.FetcherRequest[uint64, *types.BlockByHeight]
}

// DeployFetcherRequest ...
type DeployFetcherRequest struct {
	Request effect.FetcherRequest[types.DeployHash, *types.Deploy]
}

// BlockValidatorRequest ...
type BlockValidatorRequest struct {
	Request effect.BlockValidationRequest[*types.Block]
}

// BlockExecutorRequest ...
type BlockExecutorRequest struct {
	Request effect.ExecuteBlockRequest
}

// DeployBufferRequest is never served while joining.
type DeployBufferRequest struct {
	Request effect.DeployBufferRequest
}

// ProtoBlockValidatorRequest is never served while joining.
type ProtoBlockValidatorRequest struct {
	Request effect.BlockValidationRequest[*types.ProtoBlock]
}

// Announcements.

// NetworkAnnouncement ...
type NetworkAnnouncement struct {
	Announcement effect.NetworkAnnouncement
}

// BlockExecutorAnnouncement reports a block executed and appended to the
// linear chain.
type BlockExecutorAnnouncement struct {
	Announcement effect.LinearChainBlock
}

// ConsensusAnnouncement ...
type ConsensusAnnouncement struct {
	Announcement effect.ConsensusAnnouncement
}

// AddressGossiperAnnouncement reports an address received in full from a
// peer.
type AddressGossiperAnnouncement struct {
	Announcement effect.NewCompleteItem[types.GossipedAddress]
}

func (NetworkEvent) isJoinerEvent()                {}
func (StorageEvent) isJoinerEvent()                {}
func (BlockFetcherEvent) isJoinerEvent()           {}
func (BlockByHeightFetcherEvent) isJoinerEvent()   {}
func (DeployFetcherEvent) isJoinerEvent()          {}
func (BlockValidatorEvent) isJoinerEvent()         {}
func (LinearChainSyncEvent) isJoinerEvent()        {}
func (BlockExecutorEvent) isJoinerEvent()          {}
func (ContractRuntimeEvent) isJoinerEvent()        {}
func (LinearChainEvent) isJoinerEvent()            {}
func (ConsensusEvent) isJoinerEvent()              {}
func (AddressGossiperEvent) isJoinerEvent()        {}
func (BlockFetcherRequest) isJoinerEvent()         {}
func (BlockByHeightFetcherRequest) isJoinerEvent() {}
func (DeployFetcherRequest) isJoinerEvent()        {}
func (BlockValidatorRequest) isJoinerEvent()       {}
func (BlockExecutorRequest) isJoinerEvent()        {}
func (DeployBufferRequest) isJoinerEvent()         {}
func (ProtoBlockValidatorRequest) isJoinerEvent()  {}
func (NetworkAnnouncement) isJoinerEvent()         {}
func (BlockExecutorAnnouncement) isJoinerEvent()   {}
func (ConsensusAnnouncement) isJoinerEvent()       {}
func (AddressGossiperAnnouncement) isJoinerEvent() {}

func (e NetworkEvent) String() string         { return fmt.Sprintf("network: %s", e.Event) }
func (e StorageEvent) String() string         { return fmt.Sprintf("storage: %s", e.Event) }
func (e BlockFetcherEvent) String() string    { return fmt.Sprintf("block fetcher: %s", e.Event) }
func (e DeployFetcherEvent) String() string   { return fmt.Sprintf("deploy fetcher: %s", e.Event) }
func (e BlockValidatorEvent) String() string  { return fmt.Sprintf("block validator: %s", e.Event) }
func (e BlockExecutorEvent) String() string   { return fmt.Sprintf("block executor: %s", e.Event) }
func (e ContractRuntimeEvent) String() string { return fmt.Sprintf("contract runtime: %s", e.Event) }
func (e LinearChainEvent) String() string     { return fmt.Sprintf("linear chain: %s", e.Event) }
func (e ConsensusEvent) String() string       { return fmt.Sprintf("consensus: %s", e.Event) }
func (e AddressGossiperEvent) String() string { return fmt.Sprintf("address gossiper: %s", e.Event) }

func (e BlockByHeightFetcherEvent) String() string {
	return fmt.Sprintf("block by height fetcher: %s", e.Event)
}

func (e LinearChainSyncEvent) String() string {
	return fmt.Sprintf("linear chain sync: %s", e.Event)
}

func (e BlockFetcherRequest) String() string {
	return fmt.Sprintf("block fetcher request: %s", e.Request)
}

func (e BlockByHeightFetcherRequest) String() string {
	return fmt.Sprintf("block by height fetcher request: %s", e.Request)
}

func (e DeployFetcherRequest) String() string {
	return fmt.Sprintf("deploy fetcher request: %s", e.Request)
}

func (e BlockValidatorRequest) String() string {
	return fmt.Sprintf("block validator request: %s", e.Request)
}

func (e BlockExecutorRequest) String() string {
	return fmt.Sprintf("block executor request: %s", e.Request)
}

func (e DeployBufferRequest) String() string {
	return fmt.Sprintf("deploy buffer request: %s", e.Request)
}

func (e ProtoBlockValidatorRequest) String() string {
	return fmt.Sprintf("proto block validator request: %s", e.Request)
}

func (e NetworkAnnouncement) String() string {
	return fmt.Sprintf("network announcement: %s", e.Announcement)
}

func (e BlockExecutorAnnouncement) String() string {
	return fmt.Sprintf("block executor announcement: %s", e.Announcement)
}

func (e ConsensusAnnouncement) String() string {
	return fmt.Sprintf("consensus announcement: %s", e.Announcement)
}

func (e AddressGossiperAnnouncement) String() string {
	return fmt.Sprintf("address gossiper announcement: %s", e.Announcement)
}
