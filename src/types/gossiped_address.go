package types

import "fmt"

// GossipedAddress is a public listening address spread through the network so
// that peers can connect to each other. Index distinguishes successive rounds
// of gossip of the same address.
type GossipedAddress struct {
	Address string
	Index   uint32
}

// NewGossipedAddress ...
func NewGossipedAddress(address string, index uint32) GossipedAddress {
	return GossipedAddress{Address: address, Index: index}
}

// String ...
func (g GossipedAddress) String() string {
	return fmt.Sprintf("gossiped-address %s#%d", g.Address, g.Index)
}
