package projection

import (
	"context"
	"sync"
)

// Value is an observable piece of projection state. Every Set bumps the
// version; subscribers receive a coalesced signal and read the latest value,
// so slow readers skip intermediate states rather than queue them.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	version uint64
	nextID  uint64
	subs    map[uint64]chan struct{}
}

// NewValue returns a value holding initial at version 0.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[uint64]chan struct{})}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Get returns the current value with its version.
func (v *Value[T]) Get() (T, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.version
}

// Set replaces the value and wakes subscribers.
func (v *Value[T]) Set(next T) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setLocked(next)
}

// Update applies fn to the current value atomically.
func (v *Value[T]) Update(fn func(T) T) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setLocked(fn(v.current))
}

func (v *Value[T]) setLocked(next T) uint64 {
	v.current = next
	v.version++
	for _, ch := range v.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return v.version
}

// Subscribe returns a signal channel that is ready immediately and again
// after every later Set. The returned func unsubscribes and is idempotent.
func (v *Value[T]) Subscribe() (<-chan struct{}, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	id := v.nextID
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Await blocks until the value satisfies ready and returns it.
func (v *Value[T]) Await(ctx context.Context, ready func(T) bool) (T, error) {
	return v.await(ctx, func(value T, _ uint64) bool { return ready(value) })
}

// Published blocks until the value has been Set at least once.
func (v *Value[T]) Published(ctx context.Context) (T, error) {
	return v.await(ctx, func(_ T, version uint64) bool { return version > 0 })
}

func (v *Value[T]) await(ctx context.Context, ready func(T, uint64) bool) (T, error) {
	signal, cancel := v.Subscribe()
	defer cancel()
	for {
		select {
		case <-signal:
			if current, version := v.Get(); ready(current, version) {
				return current, nil
			}
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
