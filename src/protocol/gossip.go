package protocol

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/types"
)

// GossipKind ...
type GossipKind uint8

const (
	// Gossip announces an item to a peer.
	Gossip GossipKind = iota
	// GossipResponse tells the gossiping peer whether the item was already
	// held.
	GossipResponse
)

// GossipMessage is exchanged by address gossipers.
type GossipMessage struct {
	Kind          GossipKind
	Item          types.GossipedAddress
	IsAlreadyHeld bool
}

// NewGossip ...
func NewGossip(item types.GossipedAddress) GossipMessage {
	return GossipMessage{Kind: Gossip, Item: item}
}

// NewGossipResponse ...
func NewGossipResponse(item types.GossipedAddress, held bool) GossipMessage {
	return GossipMessage{Kind: GossipResponse, Item: item, IsAlreadyHeld: held}
}

// String ...
func (g *GossipMessage) String() string {
	if g.Kind == GossipResponse {
		return fmt.Sprintf("gossip-response(%s, held=%t)", g.Item, g.IsAlreadyHeld)
	}
	return fmt.Sprintf("gossip(%s)", g.Item)
}
