// Package protocol defines the messages nodes exchange over the network.
package protocol

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/types"
)

// MessageKind distinguishes the payloads a Message can carry.
type MessageKind uint8

const (
	// Consensus carries an opaque consensus protocol message.
	Consensus MessageKind = iota
	// AddressGossiper carries a GossipMessage about a peer address.
	AddressGossiper
	// GetRequest asks the receiver for the item identified by SerializedID.
	GetRequest
	// GetResponse carries a serialized item in answer to a GetRequest.
	GetResponse
)

// String ...
func (k MessageKind) String() string {
	switch k {
	case Consensus:
		return "Consensus"
	case AddressGossiper:
		return "AddressGossiper"
	case GetRequest:
		return "GetRequest"
	case GetResponse:
		return "GetResponse"
	default:
		return "Unknown"
	}
}

// Message is the envelope of everything sent between nodes. Which fields are
// set depends on Kind.
type Message struct {
	Kind MessageKind

	// GetRequest and GetResponse
	Tag            types.Tag
	SerializedID   []byte
	SerializedItem []byte

	// AddressGossiper
	Gossip *GossipMessage

	// Consensus
	Payload []byte
}

// NewGetRequest asks for the item of kind tag identified by id.
func NewGetRequest(tag types.Tag, id interface{}) (Message, error) {
	raw, err := types.Encode(id)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: GetRequest, Tag: tag, SerializedID: raw}, nil
}

// NewGetResponse answers a GetRequest with the serialized item.
func NewGetResponse(tag types.Tag, item interface{}) (Message, error) {
	raw, err := types.Encode(item)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: GetResponse, Tag: tag, SerializedItem: raw}, nil
}

// NewAddressGossip wraps a gossip protocol message.
func NewAddressGossip(m GossipMessage) Message {
	return Message{Kind: AddressGossiper, Gossip: &m}
}

// NewConsensus wraps an opaque consensus payload.
func NewConsensus(payload []byte) Message {
	return Message{Kind: Consensus, Payload: payload}
}

// String ...
func (m Message) String() string {
	switch m.Kind {
	case GetRequest:
		return fmt.Sprintf("GetRequest(%s, %d bytes)", m.Tag, len(m.SerializedID))
	case GetResponse:
		return fmt.Sprintf("GetResponse(%s, %d bytes)", m.Tag, len(m.SerializedItem))
	case AddressGossiper:
		if m.Gossip == nil {
			return "AddressGossiper(<nil>)"
		}
		return fmt.Sprintf("AddressGossiper(%s)", m.Gossip)
	case Consensus:
		return fmt.Sprintf("Consensus(%d bytes)", len(m.Payload))
	default:
		return fmt.Sprintf("Message(kind %d)", m.Kind)
	}
}
