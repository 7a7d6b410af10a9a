package network

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is the network's event type.
type Event interface {
	fmt.Stringer
	isNetworkEvent()
}

// Request wraps a request to send messages.
type Request struct {
	Request effect.NetworkRequest
}

// OutgoingEstablished is raised once a connection we dialled completed its
// handshake.
type OutgoingEstablished struct {
	Peer    types.NodeID
	Address string
	conn    *peerConn
}

// OutgoingFailed is raised when dialling Address or the handshake failed.
type OutgoingFailed struct {
	Address string
	Err     error
}

// IncomingHandshake is raised when a peer connected to us and introduced
// itself.
type IncomingHandshake struct {
	Peer    types.NodeID
	Address string
}

// ConnectionClosed is raised when the reader of a connection stops.
type ConnectionClosed struct {
	Peer     types.NodeID
	Outgoing bool
	Err      error
}

// PeerAddressReceived is a public address learned through gossip.
type PeerAddressReceived struct {
	Address types.GossipedAddress
}

// GossipOurAddress fires every gossip interval.
type GossipOurAddress struct{}

func (Request) isNetworkEvent()             {}
func (OutgoingEstablished) isNetworkEvent() {}
func (OutgoingFailed) isNetworkEvent()      {}
func (IncomingHandshake) isNetworkEvent()   {}
func (ConnectionClosed) isNetworkEvent()    {}
func (PeerAddressReceived) isNetworkEvent() {}
func (GossipOurAddress) isNetworkEvent()    {}

func (e Request) String() string { return e.Request.String() }

func (e OutgoingEstablished) String() string {
	return fmt.Sprintf("outgoing connection to %s at %s established", e.Peer, e.Address)
}

func (e OutgoingFailed) String() string {
	return fmt.Sprintf("outgoing connection to %s failed: %v", e.Address, e.Err)
}

func (e IncomingHandshake) String() string {
	return fmt.Sprintf("incoming connection from %s at %s", e.Peer, e.Address)
}

func (e ConnectionClosed) String() string {
	dir := "incoming"
	if e.Outgoing {
		dir = "outgoing"
	}
	return fmt.Sprintf("%s connection to %s closed: %v", dir, e.Peer, e.Err)
}

func (e PeerAddressReceived) String() string {
	return fmt.Sprintf("peer address received: %s", e.Address.Address)
}

func (GossipOurAddress) String() string { return "gossip our address" }
