// Package broker fans values out to in-process subscribers.
package broker

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultBuffer = 64

// Broker delivers each published value to every current subscriber without
// blocking the publisher. Subscribers that fall behind miss values.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[chan T]struct{}
	done    chan struct{}
	buffer  int
	dropped atomic.Uint64
}

// New returns a broker whose subscriber channels hold buffer values. A
// non-positive buffer selects the default.
func New[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker[T]{
		subs:   make(map[chan T]struct{}),
		done:   make(chan struct{}),
		buffer: buffer,
	}
}

// Close closes the broker and every subscriber channel. It is safe to call twice.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}

// Subscribe registers for future values. The channel closes when ctx is done
// or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan T)
		close(ch)
		return ch
	default:
	}

	ch := make(chan T, b.buffer)
	b.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		close(ch)
	}()

	return ch
}

// Publish offers v to every subscriber.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}
