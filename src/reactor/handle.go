package reactor

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/effect"
)

// EventQueueHandle is the effect.Scheduler of a reactor. It lifts whatever
// components schedule into the reactor's event type and pushes it on the
// queue.
type EventQueueHandle[E any] struct {
	queue *Queue[E]
	lift  LiftFunc[E]
}

// NewEventQueueHandle ...
func NewEventQueueHandle[E any](queue *Queue[E], lift LiftFunc[E]) *EventQueueHandle[E] {
	return &EventQueueHandle[E]{queue: queue, lift: lift}
}

// Schedule implements effect.Scheduler. Scheduling a value the reactor cannot
// lift is a wiring bug and panics. Events scheduled after the queue closed are
// silently dropped.
func (h *EventQueueHandle[E]) Schedule(ev interface{}, kind effect.QueueKind) {
	lifted, ok := h.lift(ev)
	if !ok {
		panic(fmt.Sprintf("reactor cannot handle %T: %v", ev, ev))
	}
	h.queue.Push(lifted, kind)
}
