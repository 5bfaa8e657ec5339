package async

import (
	"context"
	"time"
)

// Future is the single delivery point for one background unit of work. The
// work runs at most once, produces exactly one terminal result, and the
// result can be awaited any number of times (or never; an abandoned Future
// leaks nothing once its goroutine returns).
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Run starts fn on its own goroutine and returns a Future for its result.
// A context canceled before fn starts short-circuits to ctx.Err(); once fn
// is running, cancellation is fn's responsibility to observe.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()

	return f
}

// Await blocks until the work completes and returns its terminal result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout is Await with an upper bound. On timeout the work keeps
// running; only this wait gives up, returning ErrTimeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// Done returns a channel closed when the work completes, for use in select
// statements alongside other channels.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports completion without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
