// Package channel provides the unbounded FIFO queue that moves values between
// goroutines inside the engine: stream chunks between producers and consumers,
// and finished tasks back to the scheduler loop.
//
// Unlike the built-in chan type, senders never block: items queue in memory
// until a receiver drains them. Receivers block until an item arrives or the
// channel is closed. Order is strictly first-in, first-out.
package channel

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send after the channel has been closed.
var ErrClosed = errors.New("send on closed channel")

// Chan is an unbounded, goroutine-safe FIFO channel.
//
// The zero value is not usable; create instances with New.
type Chan[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T
	closed   bool
}

// New creates an empty, open channel.
func New[T any]() *Chan[T] {
	ch := &Chan[T]{}
	ch.notEmpty = sync.NewCond(&ch.mu)
	return ch
}

// Send appends v to the queue and wakes one blocked receiver. It never
// blocks. After Close it returns ErrClosed and the value is dropped.
func (ch *Chan[T]) Send(v T) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return ErrClosed
	}
	ch.items = append(ch.items, v)
	ch.notEmpty.Signal()
	return nil
}

// Receive blocks until an item is available or the channel is closed and
// drained. The boolean is false only in the closed-and-empty case: items
// queued before Close are still delivered, in order.
func (ch *Chan[T]) Receive() (T, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for len(ch.items) == 0 && !ch.closed {
		ch.notEmpty.Wait()
	}
	return ch.popLocked()
}

// TryReceive pops the head of the queue without blocking. The boolean is
// false when nothing is available right now, whether or not the channel is
// closed.
func (ch *Chan[T]) TryReceive() (T, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if len(ch.items) == 0 {
		var zero T
		return zero, false
	}
	return ch.popLocked()
}

func (ch *Chan[T]) popLocked() (T, bool) {
	if len(ch.items) == 0 {
		var zero T
		return zero, false
	}
	v := ch.items[0]
	var zero T
	ch.items[0] = zero // drop the reference so the backing array does not pin it
	ch.items = ch.items[1:]
	if len(ch.items) == 0 {
		ch.items = nil
	}
	return v, true
}

// Close marks the channel closed and wakes every blocked receiver. Queued
// items remain receivable. Close is idempotent and safe to call from either
// side of the channel.
func (ch *Chan[T]) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return
	}
	ch.closed = true
	ch.notEmpty.Broadcast()
}

// IsClosed reports whether Close has been called.
func (ch *Chan[T]) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

// Len reports how many items are currently queued. The value is advisory:
// it may be stale by the time the caller acts on it.
func (ch *Chan[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.items)
}
