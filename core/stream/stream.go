package stream

import (
	"errors"
	"io"
	"sync"

	"github.com/blueskygzhz/eino-cpp-sub002/internal/channel"
)

// ErrClosed is returned by Producer.Send and Producer.SendError once the pair
// has been closed from either side. A consumer that calls Close releases the
// pair early; the producer observes that release as ErrClosed on its next
// send and should stop producing.
var ErrClosed = errors.New("stream: send on closed pair")

// item is the tagged element carried by the pair's transport. Exactly one of
// chunk or err is meaningful.
type item[T any] struct {
	chunk T
	err   error
}

// source is the pull side behind a Consumer. next returns the next chunk, a
// terminal producer error, or io.EOF once the stream ended cleanly. close
// releases whatever transport backs the source and is idempotent.
type source[T any] interface {
	next() (T, error)
	close()
}

// NewPair creates a connected consumer/producer pair backed by an unbounded
// FIFO channel. The producer never blocks; the consumer blocks in Recv until
// a chunk arrives or the stream ends.
func NewPair[T any]() (*Consumer[T], *Producer[T]) {
	transport := channel.New[item[T]]()
	return &Consumer[T]{src: &pairSource[T]{transport: transport}},
		&Producer[T]{transport: transport}
}

// --- Producer ---

// Producer is the sending half of a stream pair.
type Producer[T any] struct {
	transport *channel.Chan[item[T]]
}

// Send queues one chunk for the consumer. It never blocks. After either side
// has closed the pair, Send returns ErrClosed and the chunk is dropped.
func (producer *Producer[T]) Send(value T) error {
	if err := producer.transport.Send(item[T]{chunk: value}); err != nil {
		return ErrClosed
	}
	return nil
}

// SendError delivers err as the stream's terminal error and ends the stream:
// the consumer receives every chunk queued so far, then err, and nothing
// after it. Sending a nil error is equivalent to Close. SendError returns
// ErrClosed if the pair was already closed.
func (producer *Producer[T]) SendError(err error) error {
	if err == nil {
		producer.Close()
		return nil
	}
	if sendErr := producer.transport.Send(item[T]{err: err}); sendErr != nil {
		return ErrClosed
	}
	producer.transport.Close()
	return nil
}

// Close marks the clean end of the stream. Chunks already queued are still
// delivered, after which the consumer sees io.EOF. Close is idempotent.
func (producer *Producer[T]) Close() {
	producer.transport.Close()
}

// --- Consumer ---

// Consumer is the receiving half of a stream pair.
//
// A Consumer is single-owner: exactly one goroutine may call Recv at a time,
// and ownership passes along with the value. Close is the one exception — it
// may be called from another goroutine to release a consumer blocked in Recv,
// which is how a cancelled run unblocks its in-flight readers. Copy splits a
// consumer for fan-out; Concat collapses one into a single value.
type Consumer[T any] struct {
	src  source[T]
	mu   sync.Mutex
	term error
}

// Recv returns the next chunk of the stream. Exactly one of three outcomes
// occurs: a chunk with a nil error; a terminal error the producer sent; or
// io.EOF once the stream ended cleanly. A terminal outcome is sticky — every
// later Recv repeats it — and releases the underlying transport.
func (consumer *Consumer[T]) Recv() (T, error) {
	consumer.mu.Lock()
	if consumer.term != nil {
		err := consumer.term
		consumer.mu.Unlock()
		var zero T
		return zero, err
	}
	consumer.mu.Unlock()

	// The pull can block; it must not hold the mutex, or a concurrent Close
	// could never release it.
	value, err := consumer.src.next()

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	if consumer.term != nil {
		var zero T
		return zero, consumer.term
	}
	if err != nil {
		consumer.term = err
		consumer.src.close()
		var zero T
		return zero, err
	}
	return value, nil
}

// Close releases the consumer side of the pair before the stream has ended.
// A producer still holding the other half sees ErrClosed from its next Send,
// and a Recv blocked on this consumer wakes with io.EOF. Close is idempotent.
func (consumer *Consumer[T]) Close() {
	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	consumer.src.close()
	if consumer.term == nil {
		consumer.term = io.EOF
	}
}

// Collect drains the stream and returns every chunk in arrival order. Unlike
// Concat it keeps the chunks it gathered when a terminal error cuts the
// stream short, returning them alongside the error.
func (consumer *Consumer[T]) Collect() ([]T, error) {
	var chunks []T
	for {
		value, err := consumer.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return chunks, nil
			}
			return chunks, err
		}
		chunks = append(chunks, value)
	}
}

// --- Sources ---

type pairSource[T any] struct {
	transport *channel.Chan[item[T]]
}

func (s *pairSource[T]) next() (T, error) {
	next, ok := s.transport.Receive()
	if !ok {
		var zero T
		return zero, io.EOF
	}
	if next.err != nil {
		var zero T
		return zero, next.err
	}
	return next.chunk, nil
}

func (s *pairSource[T]) close() {
	s.transport.Close()
}

// FromSlice returns a consumer that yields the given chunks in order and then
// ends cleanly. The slice is not copied; callers must not mutate it while the
// stream is live.
func FromSlice[T any](chunks []T) *Consumer[T] {
	return &Consumer[T]{src: &sliceSource[T]{chunks: chunks}}
}

type sliceSource[T any] struct {
	chunks []T
	pos    int
}

func (s *sliceSource[T]) next() (T, error) {
	if s.pos >= len(s.chunks) {
		var zero T
		return zero, io.EOF
	}
	value := s.chunks[s.pos]
	s.pos++
	return value, nil
}

// close is a no-op: a slice source holds no transport to release, and the
// consumer's own terminal state already stops further reads.
func (s *sliceSource[T]) close() {}
