package gossiper

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is the gossiper's event type.
type Event interface {
	fmt.Stringer
	isGossiperEvent()
}

// ItemReceived is a new item to gossip, from a local client or a peer.
type ItemReceived struct {
	Item   types.GossipedAddress
	Source types.Source
}

// MessageReceived is a gossip protocol message from a peer.
type MessageReceived struct {
	Sender  types.NodeID
	Message protocol.GossipMessage
}

// GossipedTo carries the peers an item was just gossiped to.
type GossipedTo struct {
	Item  types.GossipedAddress
	Peers []types.NodeID
}

// CheckGossipTimeout fires when Peer had the chance to answer our gossip
// about Item.
type CheckGossipTimeout struct {
	Item types.GossipedAddress
	Peer types.NodeID
}

func (ItemReceived) isGossiperEvent()       {}
func (MessageReceived) isGossiperEvent()    {}
func (GossipedTo) isGossiperEvent()         {}
func (CheckGossipTimeout) isGossiperEvent() {}

func (e ItemReceived) String() string {
	return fmt.Sprintf("new item %s received from %s", e.Item, e.Source)
}

func (e MessageReceived) String() string {
	return fmt.Sprintf("%s received from %s", &e.Message, e.Sender)
}

func (e GossipedTo) String() string {
	return fmt.Sprintf("gossiped %s to %d peers", e.Item, len(e.Peers))
}

func (e CheckGossipTimeout) String() string {
	return fmt.Sprintf("check gossip timeout for %s with %s", e.Item, e.Peer)
}
