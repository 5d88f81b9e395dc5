// Package future provides a cancellable asynchronous operation primitive.
//
// A Future is the read side of an operation that settles exactly once, with
// either a value or an error. Cancelling a future settles it immediately with
// ErrCancelled; if the underlying work later completes anyway, its result is
// discarded rather than delivered. Cancellation therefore never aborts the
// work itself — it only guarantees the holder stops observing it.
package future

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"
)

// ErrCancelled is the settlement error of a cancelled future.
var ErrCancelled = errors.New("operation cancelled")

// Future is the consumer side of an asynchronous operation.
// It is safe for concurrent use.
type Future[T any] struct {
	once      sync.Once
	done      chan struct{}
	cancelled *atomic.Bool

	// value and err are written exactly once, before done is closed.
	value T
	err   error
}

// Promise is the producer side of a Future. It can only settle the future
// once; later settlements are ignored.
type Promise[T any] struct {
	f *Future[T]
}

// New creates an unsettled future and its promise.
func New[T any]() (*Future[T], *Promise[T]) {
	f := &Future[T]{
		done:      make(chan struct{}),
		cancelled: atomic.NewBool(false),
	}

	return f, &Promise[T]{f: f}
}

// Go runs f in a new goroutine and returns a future for its result.
// Panics in f are recovered and delivered as errors.
func Go[T any](f func() (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Failure(fmt.Errorf("panic recovered: %v\n%s", r, debug.Stack()))
			}
		}()

		promise.Complete(f())
	}()

	return fut
}

// settle records the result and closes done. Only the first call wins.
func (f *Future[T]) settle(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Cancel settles the future with ErrCancelled. It is idempotent, and a
// no-op if the future has already settled. The underlying work is not
// interrupted; a later completion from it is silently discarded.
func (f *Future[T]) Cancel() {
	f.cancelled.Store(true)

	var zero T
	f.settle(zero, ErrCancelled)
}

// IsCancelled reports whether Cancel has been called.
func (f *Future[T]) IsCancelled() bool {
	return f.cancelled.Load()
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or the context ends. A context error
// does not settle the future; the operation stays pending for other waiters.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Success settles the future with a value. Ignored after cancellation or a
// prior settlement.
func (p *Promise[T]) Success(value T) {
	p.f.settle(value, nil)
}

// Failure settles the future with an error.
func (p *Promise[T]) Failure(err error) {
	var zero T
	p.f.settle(zero, err)
}

// Complete settles the future following Go's (value, error) convention.
func (p *Promise[T]) Complete(value T, err error) {
	if err != nil {
		p.Failure(err)
	} else {
		p.Success(value)
	}
}
