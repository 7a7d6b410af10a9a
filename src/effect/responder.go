package effect

import (
	"context"
	"fmt"
)

// Responder answers a request exactly once. The zero value discards the
// answer.
type Responder[T any] struct {
	ch chan T
}

// NewResponder returns a Responder with room for its single answer.
func NewResponder[T any]() Responder[T] {
	return Responder[T]{ch: make(chan T, 1)}
}

// Respond delivers v to the requester. It never blocks; answering twice is a
// no-op and reports false.
func (r Responder[T]) Respond(v T) bool {
	if r.ch == nil {
		return false
	}
	select {
	case r.ch <- v:
		return true
	default:
		return false
	}
}

// Wait blocks until the request has been answered or ctx is done.
func (r Responder[T]) Wait(ctx context.Context) (T, error) {
	select {
	case v := <-r.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// String ...
func (r Responder[T]) String() string {
	var zero T
	return fmt.Sprintf("responder(%T)", zero)
}
