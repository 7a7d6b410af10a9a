package reactor

import (
	"context"
	"errors"
	"sync"

	"github.com/mosaicnetworks/joiner/src/effect"
)

// ErrQueueClosed is returned by Pop once the queue has been closed.
var ErrQueueClosed = errors.New("event queue closed")

// DefaultWeights is the number of events popped from each kind of queue in
// one round before moving on to the next kind.
var DefaultWeights = map[effect.QueueKind]int{
	effect.QueueNetworkIncoming: 4,
	effect.QueueNetwork:         4,
	effect.QueueRegular:         8,
	effect.QueueAPI:             2,
}

// Queue is a set of FIFO queues, one per QueueKind, drained in weighted
// round-robin order. It is safe for concurrent use.
type Queue[E any] struct {
	sync.Mutex
	queues  map[effect.QueueKind][]E
	weights map[effect.QueueKind]int

	current   int // index in effect.QueueKinds
	remaining int // events left to take from the current kind this round

	count  int
	closed bool
	notify chan struct{}
}

// NewQueue ...
func NewQueue[E any](weights map[effect.QueueKind]int) *Queue[E] {
	if weights == nil {
		weights = DefaultWeights
	}
	q := &Queue[E]{
		queues:  make(map[effect.QueueKind][]E),
		weights: weights,
		notify:  make(chan struct{}, 1),
	}
	q.remaining = q.weight(effect.QueueKinds[0])
	return q
}

func (q *Queue[E]) weight(kind effect.QueueKind) int {
	if w, ok := q.weights[kind]; ok && w > 0 {
		return w
	}
	return 1
}

// Push adds ev to the queue of the given kind. It reports false, and drops
// the event, if the queue is closed.
func (q *Queue[E]) Push(ev E, kind effect.QueueKind) bool {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return false
	}

	if kind < 0 || int(kind) >= len(effect.QueueKinds) {
		kind = effect.QueueRegular
	}

	q.queues[kind] = append(q.queues[kind], ev)
	q.count++

	// notify is closed by Close, so the send must happen under the lock
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the next event, blocking until one is available, the queue is
// closed, or ctx is done.
func (q *Queue[E]) Pop(ctx context.Context) (E, effect.QueueKind, error) {
	for {
		q.Lock()
		if q.closed {
			q.Unlock()
			var zero E
			return zero, 0, ErrQueueClosed
		}
		if q.count > 0 {
			ev, kind := q.take()
			q.Unlock()
			return ev, kind, nil
		}
		q.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero E
			return zero, 0, ctx.Err()
		}
	}
}

// take must be called with the lock held and a non-empty queue.
func (q *Queue[E]) take() (E, effect.QueueKind) {
	for {
		kind := effect.QueueKinds[q.current]
		if q.remaining > 0 && len(q.queues[kind]) > 0 {
			ev := q.queues[kind][0]
			var zero E
			q.queues[kind][0] = zero
			q.queues[kind] = q.queues[kind][1:]
			q.remaining--
			q.count--
			return ev, kind
		}
		q.current = (q.current + 1) % len(effect.QueueKinds)
		q.remaining = q.weight(effect.QueueKinds[q.current])
	}
}

// Len returns the total number of queued events.
func (q *Queue[E]) Len() int {
	q.Lock()
	defer q.Unlock()
	return q.count
}

// Close drops every queued event and makes Pop return ErrQueueClosed.
func (q *Queue[E]) Close() {
	q.Lock()
	defer q.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.queues = make(map[effect.QueueKind][]E)
	q.count = 0
	close(q.notify)
}
