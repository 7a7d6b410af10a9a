// Package gossiper spreads peer addresses through the network.
//
// An address is gossiped to a few random peers, each of which answers whether
// it already held it. Gossip continues until InfectionTarget peers are known
// to hold the address or there is nobody left to tell. Addresses first learned
// from a peer are announced as new complete items so that the network
// component can connect to them.
package gossiper
