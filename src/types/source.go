package types

import "fmt"

// SourceKind says where an item came from.
type SourceKind uint8

const (
	// SourcePeer items were received from a remote peer.
	SourcePeer SourceKind = iota
	// SourceClient items were submitted by the local node itself.
	SourceClient
	// SourceStorage items were found in local storage.
	SourceStorage
)

// Source is the origin of an item handled by a fetcher or a gossiper. Peer is
// only meaningful when Kind is SourcePeer.
type Source struct {
	Kind SourceKind
	Peer NodeID
}

// PeerSource returns a Source for an item received from peer.
func PeerSource(peer NodeID) Source {
	return Source{Kind: SourcePeer, Peer: peer}
}

// ClientSource is the source of locally-originated items.
func ClientSource() Source {
	return Source{Kind: SourceClient}
}

// StorageSource is the source of items already held in storage.
func StorageSource() Source {
	return Source{Kind: SourceStorage}
}

// NodeID returns the peer if the source is a peer.
func (s Source) NodeID() (NodeID, bool) {
	return s.Peer, s.Kind == SourcePeer
}

// String ...
func (s Source) String() string {
	switch s.Kind {
	case SourcePeer:
		return fmt.Sprintf("peer %s", s.Peer)
	case SourceClient:
		return "client"
	default:
		return "storage"
	}
}
