package consensus

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is the era supervisor's event type.
type Event interface {
	fmt.Stringer
	isConsensusEvent()
}

// Request wraps a request addressed to consensus.
type Request struct {
	Request effect.ConsensusRequest
}

// Timer fires once per era duration.
type Timer struct {
	Era uint64
}

// MessageReceived is a consensus message from a peer.
type MessageReceived struct {
	Sender  types.NodeID
	Payload []byte
}

// NewProtoBlock is the deploy buffer's answer to a proto-block request.
type NewProtoBlock struct {
	Era        uint64
	ProtoBlock *types.ProtoBlock
}

func (Request) isConsensusEvent()         {}
func (Timer) isConsensusEvent()           {}
func (MessageReceived) isConsensusEvent() {}
func (NewProtoBlock) isConsensusEvent()   {}

func (e Request) String() string { return e.Request.String() }
func (e Timer) String() string   { return fmt.Sprintf("timer for era %d", e.Era) }
func (e MessageReceived) String() string {
	return fmt.Sprintf("consensus message from %s (%d bytes)", e.Sender, len(e.Payload))
}
func (e NewProtoBlock) String() string {
	return fmt.Sprintf("new proto-block for era %d: %s", e.Era, e.ProtoBlock)
}
