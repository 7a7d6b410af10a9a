package reactor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/sirupsen/logrus"
)

// Runner owns a reactor and its event queue. Crank, Run and Shutdown must be
// called from a single goroutine.
type Runner[E fmt.Stringer, R Reactor[E]] struct {
	stateManager

	reactor R
	queue   *Queue[E]
	builder effect.Builder
	rng     *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	dispatched   uint64
	shutdownOnce sync.Once

	logger *logrus.Entry
}

// NewRunner creates the queue, constructs the reactor and starts its initial
// effects.
func NewRunner[E fmt.Stringer, R Reactor[E]](
	construct Constructor[E, R],
	lift LiftFunc[E],
	rng *rand.Rand,
	logger *logrus.Entry,
) (*Runner[E, R], error) {
	queue := NewQueue[E](nil)
	builder := effect.NewBuilder(NewEventQueueHandle(queue, lift))

	reactor, initial, err := construct(builder, rng)
	if err != nil {
		queue.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner[E, R]{
		reactor: reactor,
		queue:   queue,
		builder: builder,
		rng:     rng,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}

	r.logger.WithField("initial_effects", len(initial)).Debug("Reactor constructed")
	r.processEffects(initial)

	return r, nil
}

// Reactor returns the reactor owned by the runner.
func (r *Runner[E, R]) Reactor() R {
	return r.reactor
}

// Queue returns the event queue.
func (r *Runner[E, R]) Queue() *Queue[E] {
	return r.queue
}

// Dispatched returns the number of events dispatched so far.
func (r *Runner[E, R]) Dispatched() uint64 {
	return r.dispatched
}

// Crank dispatches exactly one event, waiting for one if the queue is empty.
func (r *Runner[E, R]) Crank(ctx context.Context) error {
	ev, kind, err := r.queue.Pop(ctx)
	if err != nil {
		return err
	}

	r.dispatched++
	r.logger.WithFields(logrus.Fields{
		"event": ev.String(),
		"queue": kind,
		"seq":   r.dispatched,
	}).Debug("Dispatching event")

	effects := r.reactor.DispatchEvent(r.builder, r.rng, ev)
	r.processEffects(effects)

	return nil
}

// TryCrank dispatches one event if one is queued and reports whether it did.
func (r *Runner[E, R]) TryCrank() (bool, error) {
	if r.queue.Len() == 0 {
		return false, nil
	}
	if err := r.Crank(context.Background()); err != nil {
		return false, err
	}
	return true, nil
}

// Run cranks the reactor until it reports it is stopped, ctx is done or the
// queue is closed. The termination predicate is checked after every
// dispatched event.
func (r *Runner[E, R]) Run(ctx context.Context) error {
	for {
		if r.reactor.IsStopped() {
			r.setState(Stopped)
			r.logger.WithField("dispatched", r.dispatched).Info("Reactor stopped")
			return nil
		}
		if err := r.Crank(ctx); err != nil {
			return err
		}
	}
}

// Shutdown closes the queue and cancels every outstanding effect, then waits
// for their goroutines to return. Results of effects finishing afterwards are
// discarded.
func (r *Runner[E, R]) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.setState(Shutdown)
		r.queue.Close()
		r.cancel()
		r.logger.WithField("in_flight", r.inFlight()).Debug("Waiting for effects")
		r.waitRoutines()
	})
}

// State returns the runner's current state.
func (r *Runner[E, R]) State() State {
	return r.getState()
}

func (r *Runner[E, R]) processEffects(effects effect.Effects[E]) {
	for _, eff := range effects {
		eff := eff
		r.goFunc(func() {
			for _, ev := range eff(r.ctx) {
				if r.ctx.Err() != nil {
					return
				}
				r.queue.Push(ev, effect.QueueRegular)
			}
		})
	}
}
