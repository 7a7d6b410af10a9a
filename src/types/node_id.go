package types

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
)

// NodeID identifies a peer on the network. It is the hash of the public key
// the peer presents in its handshake.
type NodeID crypto.Digest

// NodeIDFromPublicKey derives the NodeID of a public key.
func NodeIDFromPublicKey(pub *btcec.PublicKey) NodeID {
	return NodeID(crypto.Hash(keys.PublicKeyBytes(pub)))
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// String ...
func (id NodeID) String() string {
	return "node:" + hex.EncodeToString(id[:4])
}
