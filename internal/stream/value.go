// Package stream provides an observable state holder.
//
// A Value always has a current value. Subscribers receive the current
// value immediately and then every later one. Delivery is conflated: a
// subscriber that falls behind skips intermediate values and sees the
// latest, and Set never blocks on a slow reader.
//
// Values are shared, not copied, between subscribers. Publishers hand over
// fresh slices and maps; readers treat them as read-only.
package stream

import (
	"context"
	"sync"
)

// Observable is the read side of a Value.
type Observable[T any] interface {
	Get() T
	Subscribe(ctx context.Context) <-chan T
}

type subscriber[T any] struct {
	ch chan T
}

// Value is safe for concurrent use.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	subs   map[*subscriber[T]]struct{}
	closed bool
	done   chan struct{}
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		cur:  initial,
		subs: make(map[*subscriber[T]]struct{}),
		done: make(chan struct{}),
	}
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set stores x and pushes it to every subscriber. Set after Close is ignored.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(x)
}

// Update replaces the current value with fn(current) atomically and
// returns the new value.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := fn(v.cur)
	v.setLocked(next)
	return next
}

func (v *Value[T]) setLocked(x T) {
	if v.closed {
		return
	}
	v.cur = x
	for sub := range v.subs {
		offer(sub.ch, x)
	}
}

// offer replaces whatever is buffered in ch with x. ch has capacity one and
// only the holder of v.mu sends on it, so the send cannot block.
func offer[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- x:
	default:
	}
}

// Subscribe returns a channel that yields the current value followed by
// later values. It is closed when ctx is done or the Value is closed.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(ch)
		return ch
	}
	ch <- v.cur
	sub := &subscriber[T]{ch: ch}
	v.subs[sub] = struct{}{}
	v.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-v.done:
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.subs[sub]; ok {
			delete(v.subs, sub)
			close(sub.ch)
		}
	}()
	return ch
}

// Close closes all subscriber channels. It is safe to call more than once.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for sub := range v.subs {
		close(sub.ch)
		delete(v.subs, sub)
	}
	close(v.done)
}

// Subscribers reports the number of live subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}
