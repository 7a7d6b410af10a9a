// Package effect lets components schedule asynchronous work without blocking
// the reactor.
//
// A component handling an event never waits. Instead it returns Effects:
// closures that the runner executes on their own goroutines and whose results
// are pushed back onto the event queue as new events. Effects are built from
// Futures obtained through a Builder, which turns requests to other
// components, announcements and timers into values that can be awaited inside
// an Effect.
package effect
