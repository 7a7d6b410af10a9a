// Package reactor drives a set of components through a single event queue.
//
// A Reactor owns its components and routes every event to exactly one of
// them. The Runner pops one event at a time, dispatches it, and runs the
// returned effects on their own goroutines, pushing the events they produce
// back onto the queue. Components therefore never need locks: only one event
// is dispatched at a time.
package reactor
