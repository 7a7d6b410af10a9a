package effect

import "context"

// Effect is a unit of deferred work. Building one does nothing; the runner
// calls it on its own goroutine and enqueues the events it returns. ctx is
// cancelled when the reactor that produced the effect is torn down.
type Effect[E any] func(ctx context.Context) []E

// Effects is the ordered set of effects produced by a single dispatch.
type Effects[E any] []Effect[E]

// Future is a value that becomes available once the underlying request has
// been answered. Calling it blocks, so it may only be called from inside an
// Effect.
type Future[T any] func(ctx context.Context) (T, error)

// Event turns a future into a single effect that produces one event, obtained
// by wrapping the future's output. Nothing is produced if the future fails,
// which only happens when ctx is cancelled.
func Event[T, E any](f Future[T], wrap func(T) E) Effects[E] {
	return Effects[E]{
		func(ctx context.Context) []E {
			v, err := f(ctx)
			if err != nil {
				return nil
			}
			return []E{wrap(v)}
		},
	}
}

// Events is like Event but the wrapping function may produce any number of
// events.
func Events[T, E any](f Future[T], wrap func(T) []E) Effects[E] {
	return Effects[E]{
		func(ctx context.Context) []E {
			v, err := f(ctx)
			if err != nil {
				return nil
			}
			return wrap(v)
		},
	}
}

// Ignore runs the future for its side effects and produces no event.
func Ignore[E, T any](f Future[T]) Effects[E] {
	return Effects[E]{
		func(ctx context.Context) []E {
			f(ctx)
			return nil
		},
	}
}

// WrapEffects re-tags every effect produced by a component with the event
// constructor of its parent. The order of the effects is preserved.
func WrapEffects[E, C any](wrap func(C) E, effects Effects[C]) Effects[E] {
	if len(effects) == 0 {
		return nil
	}
	wrapped := make(Effects[E], 0, len(effects))
	for _, eff := range effects {
		eff := eff
		wrapped = append(wrapped, func(ctx context.Context) []E {
			inner := eff(ctx)
			if len(inner) == 0 {
				return nil
			}
			outer := make([]E, len(inner))
			for i, ev := range inner {
				outer[i] = wrap(ev)
			}
			return outer
		})
	}
	return wrapped
}
