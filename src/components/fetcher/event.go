package fetcher

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Event is the fetcher's event type.
type Event[I comparable, T any] interface {
	fmt.Stringer
	isFetcherEvent()
}

// Fetch asks for the item identified by ID, from storage or Peer.
type Fetch[I comparable, T any] struct {
	ID        I
	Peer      types.NodeID
	Responder effect.Responder[effect.FetchResult[T]]
}

// GotLocally carries the result of the storage lookup for ID.
type GotLocally[I comparable, T any] struct {
	ID     I
	Peer   types.NodeID
	Result effect.FetchResult[T]
}

// GotRemotely carries an item received from a peer.
type GotRemotely[I comparable, T any] struct {
	Item   T
	Source types.Source
}

// TimeoutPeer fires when Peer did not answer the GetRequest for ID in time.
// Attempt numbers the request the timer was armed for.
type TimeoutPeer[I comparable, T any] struct {
	ID      I
	Peer    types.NodeID
	Attempt uint64
}

func (Fetch[I, T]) isFetcherEvent()       {}
func (GotLocally[I, T]) isFetcherEvent()  {}
func (GotRemotely[I, T]) isFetcherEvent() {}
func (TimeoutPeer[I, T]) isFetcherEvent() {}

func (e Fetch[I, T]) String() string {
	return fmt.Sprintf("fetch %v from %s", e.ID, e.Peer)
}

func (e GotLocally[I, T]) String() string {
	return fmt.Sprintf("got %v locally: found=%t", e.ID, e.Result.Found)
}

func (e GotRemotely[I, T]) String() string {
	return fmt.Sprintf("got %v from %s", e.Item, e.Source)
}

func (e TimeoutPeer[I, T]) String() string {
	return fmt.Sprintf("check get from peer timeout for %v with %s", e.ID, e.Peer)
}

// FromRequest converts a fetcher request into the fetcher's native event.
func FromRequest[I comparable, T any](req effect.FetcherRequest[I, T]) Event[I, T] {
	return Fetch[I, T]{ID: req.ID, Peer: req.Peer, Responder: req.Responder}
}
