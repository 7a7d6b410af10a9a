package reactor

import (
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/effect"
)

// Component is a subsystem driven by events of type Ev. HandleEvent must not
// block; anything that waits goes into the returned effects.
type Component[Ev any] interface {
	HandleEvent(eb effect.Builder, rng *rand.Rand, ev Ev) effect.Effects[Ev]
}

// Reactor routes events of type E to the components it owns.
type Reactor[E any] interface {
	DispatchEvent(eb effect.Builder, rng *rand.Rand, ev E) effect.Effects[E]

	// IsStopped reports whether the reactor has reached its terminal state
	// and no further events should be dispatched.
	IsStopped() bool
}

// Constructor builds a reactor. It may return initial effects, which are run
// before the first event is dispatched.
type Constructor[E any, R Reactor[E]] func(eb effect.Builder, rng *rand.Rand) (R, effect.Effects[E], error)

// LiftFunc converts a value handed to effect.Builder.Schedule into the
// reactor's event type. It reports false for values the reactor does not
// know about.
type LiftFunc[E any] func(v interface{}) (E, bool)
