package effect

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

// NetworkAnnouncement is raised by the network component.
type NetworkAnnouncement interface {
	fmt.Stringer
	isNetworkAnnouncement()
}

// NewPeer announces an established outgoing connection.
type NewPeer struct {
	Peer types.NodeID
}

// GossipOurAddress asks for our public address to be gossiped.
type GossipOurAddress struct {
	Address types.GossipedAddress
}

// MessageReceived announces a message from a peer.
type MessageReceived struct {
	Sender  types.NodeID
	Payload protocol.Message
}

func (NewPeer) isNetworkAnnouncement()          {}
func (GossipOurAddress) isNetworkAnnouncement() {}
func (MessageReceived) isNetworkAnnouncement()  {}

func (a NewPeer) String() string          { return fmt.Sprintf("new peer %s", a.Peer) }
func (a GossipOurAddress) String() string { return fmt.Sprintf("gossip our address %s", a.Address) }
func (a MessageReceived) String() string {
	return fmt.Sprintf("received %s from %s", a.Payload, a.Sender)
}

// LinearChainBlock announces a block that was executed and should be appended
// to the linear chain.
type LinearChainBlock struct {
	Block   *types.Block
	Results []types.ExecutionResult
}

func (a LinearChainBlock) String() string {
	return fmt.Sprintf("linear chain %s", a.Block)
}

// ConsensusAnnouncement is raised by consensus.
type ConsensusAnnouncement interface {
	fmt.Stringer
	isConsensusAnnouncement()
}

// Handled announces that consensus processed the linear-chain block at
// Height.
type Handled struct {
	Height uint64
}

// Proposed announces a new proto-block proposed by this node.
type Proposed struct {
	ProtoBlock *types.ProtoBlock
}

// Finalized announces a block consensus has finalized.
type Finalized struct {
	Block *types.FinalizedBlock
}

// Fault announces an equivocating validator.
type Fault struct {
	Era       uint64
	PublicKey string
}

func (Handled) isConsensusAnnouncement()   {}
func (Proposed) isConsensusAnnouncement()  {}
func (Finalized) isConsensusAnnouncement() {}
func (Fault) isConsensusAnnouncement()     {}

func (a Handled) String() string   { return fmt.Sprintf("handled block at height %d", a.Height) }
func (a Proposed) String() string  { return fmt.Sprintf("proposed %s", a.ProtoBlock) }
func (a Finalized) String() string { return fmt.Sprintf("finalized %s", a.Block) }
func (a Fault) String() string {
	return fmt.Sprintf("fault by %s in era %d", a.PublicKey, a.Era)
}

// NewCompleteItem announces an item a gossiper received in full from a peer.
type NewCompleteItem[T any] struct {
	Item T
}

func (a NewCompleteItem[T]) String() string {
	return fmt.Sprintf("new complete item %v", a.Item)
}
