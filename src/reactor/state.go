package reactor

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a Runner: Running, Stopped or Shutdown.
type State uint32

const (
	// Running is the state in which the runner dispatches events.
	Running State = iota

	// Stopped is the state reached once the reactor reports it is done. No
	// further events are dispatched but effects may still be in flight.
	Stopped

	// Shutdown is the state in which the queue is closed and every
	// outstanding effect has been cancelled.
	Shutdown
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// stateManager wraps a State with get and set methods. It also tracks the
// goroutines running effects so that shutdown can wait for them.
type stateManager struct {
	state   State
	wg      sync.WaitGroup
	running int32
}

func (m *stateManager) getState() State {
	stateAddr := (*uint32)(&m.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (m *stateManager) setState(s State) {
	stateAddr := (*uint32)(&m.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// goFunc launches f in a goroutine tracked by the waitgroup. There is no
// limit: dropping an effect would leave its requester unanswered.
func (m *stateManager) goFunc(f func()) {
	m.wg.Add(1)
	atomic.AddInt32(&m.running, 1)
	go func() {
		defer m.wg.Done()
		defer atomic.AddInt32(&m.running, -1)
		f()
	}()
}

func (m *stateManager) inFlight() int {
	return int(atomic.LoadInt32(&m.running))
}

func (m *stateManager) waitRoutines() {
	m.wg.Wait()
}
