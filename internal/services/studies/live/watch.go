package live

import (
	"context"
	"errors"
)

// ErrClosed is returned by First when a stream ends without emitting.
var ErrClosed = errors.New("live: stream closed")

// Snapshot is one evaluation of a live query.
type Snapshot[T any] struct {
	Value T
	Err   error
	// Seq numbers emissions of one stream starting at 1.
	Seq uint64
}

// Loader evaluates a query against the current store state.
type Loader[T any] func(ctx context.Context) (T, error)

// Watch evaluates load immediately and again after every change to tables,
// until ctx is done. The subscription is taken before the first load so no
// write committed after Watch returns can be missed. All emissions come from
// one goroutine, in order; the channel is closed when ctx ends.
//
// A nil feed yields a single emission.
func Watch[T any](ctx context.Context, feed *Feed, load Loader[T], tables ...Table) <-chan Snapshot[T] {
	out := make(chan Snapshot[T], 1)
	if load == nil {
		close(out)
		return out
	}

	var signal <-chan struct{}
	cancel := func() {}
	if feed != nil {
		signal, cancel = feed.Subscribe(tables...)
	}

	go func() {
		defer close(out)
		defer cancel()

		var seq uint64
		for {
			value, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			seq++
			select {
			case out <- Snapshot[T]{Value: value, Err: err, Seq: seq}:
			case <-ctx.Done():
				return
			}
			if signal == nil {
				return
			}
			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Once wraps a single call as a one-emission stream. The call starts when
// Once is invoked, not before.
func Once[T any](ctx context.Context, call Loader[T]) <-chan Snapshot[T] {
	return Watch(ctx, nil, call)
}

// First waits for the first emission of stream and returns its value.
func First[T any](ctx context.Context, stream <-chan Snapshot[T]) (T, error) {
	var zero T
	select {
	case snap, ok := <-stream:
		if !ok {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			return zero, ErrClosed
		}
		return snap.Value, snap.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
