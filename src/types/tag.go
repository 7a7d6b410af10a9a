package types

// Tag identifies the kind of item carried in a GetRequest/GetResponse wire
// message.
type Tag uint8

const (
	// TagDeploy is a deploy, keyed by its hash.
	TagDeploy Tag = iota
	// TagBlock is a linear-chain block, keyed by its hash.
	TagBlock
	// TagBlockByHeight is a linear-chain block keyed by height.
	TagBlockByHeight
	// TagGossipedAddress is a peer address spread by the address gossiper.
	TagGossipedAddress
)

// String ...
func (t Tag) String() string {
	switch t {
	case TagDeploy:
		return "Deploy"
	case TagBlock:
		return "Block"
	case TagBlockByHeight:
		return "BlockByHeight"
	case TagGossipedAddress:
		return "GossipedAddress"
	default:
		return "Unknown"
	}
}
