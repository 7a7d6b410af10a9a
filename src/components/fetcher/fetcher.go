package fetcher

import (
	"math/rand"
	"time"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

type responders[T any] map[types.NodeID][]effect.Responder[effect.FetchResult[T]]

type request[I comparable] struct {
	id   I
	peer types.NodeID
}

// Fetcher fetches items of one kind.
type Fetcher[I comparable, T any] struct {
	kind       ItemKind[I, T]
	timeout    time.Duration
	responders map[I]responders[T]

	// GetRequest in flight per id and peer, numbered from 1
	attempts    map[request[I]]uint64
	lastAttempt uint64

	logger *logrus.Entry
}

// New returns a Fetcher for the given kind. timeout bounds the wait for a
// peer's answer to a GetRequest.
func New[I comparable, T any](kind ItemKind[I, T], timeout time.Duration, logger *logrus.Entry) *Fetcher[I, T] {
	return &Fetcher[I, T]{
		kind:       kind,
		timeout:    timeout,
		responders: make(map[I]responders[T]),
		attempts:   make(map[request[I]]uint64),
		logger:     logger.WithFields(logrus.Fields{"component": "fetcher", "tag": kind.Tag}),
	}
}

// HandleEvent implements reactor.Component.
func (f *Fetcher[I, T]) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event[I, T]) effect.Effects[Event[I, T]] {
	switch e := ev.(type) {
	case Fetch[I, T]:
		return f.fetch(eb, e)
	case GotLocally[I, T]:
		return f.gotLocally(eb, e)
	case GotRemotely[I, T]:
		return f.gotRemotely(eb, e)
	case TimeoutPeer[I, T]:
		f.timeoutPeer(e)
		return nil
	default:
		f.logger.WithField("event", ev.String()).Error("Unknown fetcher event")
		return nil
	}
}

// Pending returns the number of ids with outstanding responders.
func (f *Fetcher[I, T]) Pending() int {
	return len(f.responders)
}

func (f *Fetcher[I, T]) fetch(eb effect.Builder, e Fetch[I, T]) effect.Effects[Event[I, T]] {
	byPeer, ok := f.responders[e.ID]
	if !ok {
		byPeer = make(responders[T])
		f.responders[e.ID] = byPeer
	}
	first := len(byPeer[e.Peer]) == 0
	byPeer[e.Peer] = append(byPeer[e.Peer], e.Responder)

	// a lookup for this id and peer is already in flight
	if !first {
		return nil
	}

	id, peer := e.ID, e.Peer
	return effect.Event(
		f.kind.GetLocally(eb, id),
		func(r effect.FetchResult[T]) Event[I, T] {
			return GotLocally[I, T]{ID: id, Peer: peer, Result: r}
		},
	)
}

func (f *Fetcher[I, T]) gotLocally(eb effect.Builder, e GotLocally[I, T]) effect.Effects[Event[I, T]] {
	if e.Result.Found {
		f.signal(e.ID, nil, e.Result)
		return nil
	}

	msg, err := protocol.NewGetRequest(f.kind.Tag, e.ID)
	if err != nil {
		f.logger.WithError(err).Error("Failed to serialize id")
		f.signal(e.ID, &e.Peer, effect.FetchResult[T]{})
		return nil
	}

	f.logger.WithFields(logrus.Fields{
		"id":   e.ID,
		"peer": e.Peer,
	}).Debug("Fetching from peer")

	f.lastAttempt++
	id, peer, attempt := e.ID, e.Peer, f.lastAttempt
	f.attempts[request[I]{id, peer}] = attempt

	effects := effect.Ignore[Event[I, T]](eb.SendMessage(peer, msg))
	effects = append(effects, effect.Event(
		eb.SetTimeout(f.timeout),
		func(time.Duration) Event[I, T] {
			return TimeoutPeer[I, T]{ID: id, Peer: peer, Attempt: attempt}
		},
	)...)
	return effects
}

// timeoutPeer answers absent to those waiting on the request the timer was
// armed for. Timers of requests already answered are ignored.
func (f *Fetcher[I, T]) timeoutPeer(e TimeoutPeer[I, T]) {
	if f.attempts[request[I]{e.ID, e.Peer}] != e.Attempt {
		f.logger.WithFields(logrus.Fields{
			"id":      e.ID,
			"peer":    e.Peer,
			"attempt": e.Attempt,
		}).Debug("Ignoring stale timeout")
		return
	}
	f.signal(e.ID, &e.Peer, effect.FetchResult[T]{})
}

func (f *Fetcher[I, T]) gotRemotely(eb effect.Builder, e GotRemotely[I, T]) effect.Effects[Event[I, T]] {
	if err := f.kind.Validate(e.Item); err != nil {
		f.logger.WithError(err).WithField("source", e.Source).Warn("Received invalid item")
		return nil
	}

	id := f.kind.ID(e.Item)
	if _, ok := f.responders[id]; !ok {
		f.logger.WithField("id", id).Debug("Received item nobody asked for")
		return nil
	}

	f.signal(id, nil, effect.FetchResult[T]{Item: e.Item, Source: e.Source, Found: true})

	return effect.Ignore[Event[I, T]](f.kind.PutLocally(eb, e.Item))
}

// signal answers the responders waiting for id: those of peer only, or all
// of them when peer is nil.
func (f *Fetcher[I, T]) signal(id I, peer *types.NodeID, result effect.FetchResult[T]) {
	byPeer, ok := f.responders[id]
	if !ok {
		return
	}

	if peer != nil {
		for _, r := range byPeer[*peer] {
			r.Respond(result)
		}
		delete(byPeer, *peer)
		delete(f.attempts, request[I]{id, *peer})
		if len(byPeer) == 0 {
			delete(f.responders, id)
		}
		return
	}

	for p, rs := range byPeer {
		for _, r := range rs {
			r.Respond(result)
		}
		delete(f.attempts, request[I]{id, p})
	}
	delete(f.responders, id)
}
