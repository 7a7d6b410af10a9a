package joiner

import (
	"fmt"
	"math/rand"

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
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Wrapping functions, one per component.
func toNetworkEvent(e network.Event) Event          { return NetworkEvent{e} }
func toStorageEvent(e storage.Event) Event          { return StorageEvent{e} }
func toBlockFetcherEvent(e blockFetcherEvent) Event { return BlockFetcherEvent{e} }
func toBlockByHeightFetcherEvent(e blockByHeightFetcherEvent) Event {
	return BlockByHeightFetcherEvent{e}
}
func toDeployFetcherEvent(e deployFetcherEvent) Event      { return DeployFetcherEvent{e} }
func toBlockValidatorEvent(e blockvalidator.Event) Event   { return BlockValidatorEvent{e} }
func toLinearChainSyncEvent(e linearchainsync.Event) Event { return LinearChainSyncEvent{e} }
func toBlockExecutorEvent(e blockexecutor.Event) Event     { return BlockExecutorEvent{e} }
func toContractRuntimeEvent(e contractruntime.Event) Event { return ContractRuntimeEvent{e} }
func toLinearChainEvent(e linearchain.Event) Event         { return LinearChainEvent{e} }
func toConsensusEvent(e consensus.Event) Event             { return ConsensusEvent{e} }
func toAddressGossiperEvent(e gossiper.Event) Event        { return AddressGossiperEvent{e} }

// DispatchEvent routes ev to the component that owns it, or applies the
// reaction to an announcement. It never blocks. Events reaching a torn down
// reactor are dropped.
func (r *Reactor) DispatchEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	if r.joined != nil {
		r.logger.WithField("event", ev.String()).Error("Joiner torn down, dropping event")
		return nil
	}

	switch e := ev.(type) {
	case NetworkEvent:
		return r.dispatchNetwork(eb, rng, e.Event)
	case NetworkAnnouncement:
		return r.handleNetworkAnnouncement(eb, rng, e.Announcement)

	case StorageEvent:
		return effect.WrapEffects(toStorageEvent, r.storage.HandleEvent(eb, rng, e.Event))

	case BlockFetcherRequest:
		return r.dispatchBlockFetcher(eb, rng, fetcher.FromRequest(e.Request))
	case BlockFetcherEvent:
		return r.dispatchBlockFetcher(eb, rng, e.Event)
	case BlockByHeightFetcherRequest:
		return r.dispatchBlockByHeightFetcher(eb, rng, fetcher.FromRequest(e.Request))
	case BlockByHeightFetcherEvent:
		return r.dispatchBlockByHeightFetcher(eb, rng, e.Event)
	case DeployFetcherRequest:
		return effect.WrapEffects(toDeployFetcherEvent, r.deployFetcher.HandleEvent(eb, rng, fetcher.FromRequest(e.Request)))
	case DeployFetcherEvent:
		return effect.WrapEffects(toDeployFetcherEvent, r.deployFetcher.HandleEvent(eb, rng, e.Event))

	case BlockValidatorRequest:
		return r.dispatchBlockValidator(eb, rng, blockvalidator.Request{BlockValidationRequest: e.Request})
	case BlockValidatorEvent:
		return r.dispatchBlockValidator(eb, rng, e.Event)

	case BlockExecutorRequest:
		return r.dispatchBlockExecutor(eb, rng, blockexecutor.Request{ExecuteBlockRequest: e.Request})
	case BlockExecutorEvent:
		return r.dispatchBlockExecutor(eb, rng, e.Event)

	case ContractRuntimeEvent:
		return effect.WrapEffects(toContractRuntimeEvent, r.contractRuntime.HandleEvent(eb, rng, e.Event))

	case BlockExecutorAnnouncement:
		return r.dispatchLinearChain(eb, rng, linearchain.NewLinearChainBlock{
			Block:   e.Announcement.Block,
			Results: e.Announcement.Results,
		})
	case LinearChainEvent:
		return r.dispatchLinearChain(eb, rng, e.Event)

	case ConsensusEvent:
		return effect.WrapEffects(toConsensusEvent, r.consensus.HandleEvent(eb, rng, e.Event))
	case ConsensusAnnouncement:
		switch a := e.Announcement.(type) {
		case effect.Handled:
			return r.dispatchLinearChainSync(eb, rng, linearchainsync.BlockHandled{Height: a.Height})
		default:
			r.logger.WithField("announcement", a.String()).Warn("Ignoring consensus announcement")
			return nil
		}

	case DeployBufferRequest:
		r.logger.WithField("request", e.Request.String()).Error("Joiner cannot handle deploy buffer requests")
		return nil
	case ProtoBlockValidatorRequest:
		r.logger.WithField("request", e.Request.String()).Error("Joiner cannot handle proto block validation requests")
		return nil

	case AddressGossiperEvent:
		return r.dispatchAddressGossiper(eb, rng, e.Event)
	case AddressGossiperAnnouncement:
		return r.dispatchNetwork(eb, rng, network.PeerAddressReceived{Address: e.Announcement.Item})

	case LinearChainSyncEvent:
		return r.dispatchLinearChainSync(eb, rng, e.Event)

	default:
		panic(fmt.Sprintf("joiner: unroutable event %T: %v", ev, ev))
	}
}

func (r *Reactor) handleNetworkAnnouncement(eb effect.Builder, rng *rand.Rand, ann effect.NetworkAnnouncement) effect.Effects[Event] {
	switch a := ann.(type) {
	case effect.NewPeer:
		return r.dispatchLinearChainSync(eb, rng, linearchainsync.NewPeerConnected{Peer: a.Peer})
	case effect.GossipOurAddress:
		return r.dispatchAddressGossiper(eb, rng, gossiper.ItemReceived{
			Item:   a.Address,
			Source: types.ClientSource(),
		})
	case effect.MessageReceived:
		return r.handleMessage(eb, rng, a.Sender, a.Payload)
	default:
		r.logger.WithField("announcement", ann.String()).Warn("Ignoring network announcement")
		return nil
	}
}

func (r *Reactor) handleMessage(eb effect.Builder, rng *rand.Rand, sender types.NodeID, msg protocol.Message) effect.Effects[Event] {
	switch {
	case msg.Kind == protocol.GetResponse && msg.Tag == types.TagBlock:
		var block types.Block
		if err := types.Decode(msg.SerializedItem, &block); err != nil {
			r.logger.WithError(err).Errorf("failed to decode block from %s", sender)
			return nil
		}
		return r.dispatchBlockFetcher(eb, rng, fetcher.GotRemotely[types.BlockHash, *types.Block]{
			Item:   &block,
			Source: types.PeerSource(sender),
		})

	case msg.Kind == protocol.GetResponse && msg.Tag == types.TagBlockByHeight:
		var block types.BlockByHeight
		if err := types.Decode(msg.SerializedItem, &block); err != nil {
			r.logger.WithError(err).Errorf("failed to decode block by height from %s", sender)
			return nil
		}
		return r.dispatchBlockByHeightFetcher(eb, rng, fetcher.GotRemotely[uint64, *types.BlockByHeight]{
			Item:   &block,
			Source: types.PeerSource(sender),
		})

	case msg.Kind == protocol.AddressGossiper && msg.Gossip != nil:
		return r.dispatchAddressGossiper(eb, rng, gossiper.MessageReceived{
			Sender:  sender,
			Message: *msg.Gossip,
		})

	default:
		r.logger.WithFields(logrus.Fields{
			"sender": sender,
			"kind":   msg.Kind,
			"tag":    msg.Tag,
		}).Warn("Network announcement ignored")
		return nil
	}
}

func (r *Reactor) dispatchNetwork(eb effect.Builder, rng *rand.Rand, ev network.Event) effect.Effects[Event] {
	return effect.WrapEffects(toNetworkEvent, r.network.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockFetcher(eb effect.Builder, rng *rand.Rand, ev blockFetcherEvent) effect.Effects[Event] {
	return effect.WrapEffects(toBlockFetcherEvent, r.blockFetcher.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockByHeightFetcher(eb effect.Builder, rng *rand.Rand, ev blockByHeightFetcherEvent) effect.Effects[Event] {
	return effect.WrapEffects(toBlockByHeightFetcherEvent, r.blockByHeightFetcher.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockValidator(eb effect.Builder, rng *rand.Rand, ev blockvalidator.Event) effect.Effects[Event] {
	return effect.WrapEffects(toBlockValidatorEvent, r.blockValidator.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchBlockExecutor(eb effect.Builder, rng *rand.Rand, ev blockexecutor.Event) effect.Effects[Event] {
	return effect.WrapEffects(toBlockExecutorEvent, r.blockExecutor.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchLinearChain(eb effect.Builder, rng *rand.Rand, ev linearchain.Event) effect.Effects[Event] {
	return effect.WrapEffects(toLinearChainEvent, r.linearChain.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchLinearChainSync(eb effect.Builder, rng *rand.Rand, ev linearchainsync.Event) effect.Effects[Event] {
	return effect.WrapEffects(toLinearChainSyncEvent, r.linearChainSync.HandleEvent(eb, rng, ev))
}

func (r *Reactor) dispatchAddressGossiper(eb effect.Builder, rng *rand.Rand, ev gossiper.Event) effect.Effects[Event] {
	return effect.WrapEffects(toAddressGossiperEvent, r.addressGossiper.HandleEvent(eb, rng, ev))
}
