package stream

import "sync"

// Copy splits the consumer into n independent readers over a shared replay
// buffer. The source is pulled lazily, at the pace of the fastest copy;
// slower copies replay buffered chunks in the same order. The source is
// released once every copy has either hit a terminal outcome or been closed.
//
// Copy consumes the receiver: the original consumer must not be used after
// the call. For n < 2 the receiver is returned unchanged.
func (consumer *Consumer[T]) Copy(n int) []*Consumer[T] {
	if n < 2 {
		return []*Consumer[T]{consumer}
	}
	shared := &sharedTail[T]{from: consumer, open: n}
	shared.frontier = sync.NewCond(&shared.mu)
	copies := make([]*Consumer[T], n)
	for i := range copies {
		copies[i] = &Consumer[T]{src: &tailReader[T]{shared: shared}}
	}
	return copies
}

// sharedTail buffers chunks pulled from the source so several readers can
// replay them independently. At most one reader pulls from the source at a
// time; the pull happens outside the mutex so readers behind the frontier
// keep replaying buffered chunks while the puller blocks.
type sharedTail[T any] struct {
	mu       sync.Mutex
	frontier *sync.Cond
	from     *Consumer[T]
	buf      []T
	term     error
	pulling  bool
	open     int
}

type tailReader[T any] struct {
	shared *sharedTail[T]
	pos    int
	done   bool
}

func (reader *tailReader[T]) next() (T, error) {
	shared := reader.shared
	shared.mu.Lock()
	defer shared.mu.Unlock()

	for {
		if reader.pos < len(shared.buf) {
			value := shared.buf[reader.pos]
			reader.pos++
			return value, nil
		}
		if shared.term != nil {
			var zero T
			return zero, shared.term
		}
		if shared.pulling {
			// Another reader is at the frontier; wait for its result.
			shared.frontier.Wait()
			continue
		}

		shared.pulling = true
		shared.mu.Unlock()
		value, err := shared.from.Recv()
		shared.mu.Lock()
		shared.pulling = false

		if err != nil {
			shared.term = err
		} else {
			shared.buf = append(shared.buf, value)
		}
		shared.frontier.Broadcast()
	}
}

func (reader *tailReader[T]) close() {
	shared := reader.shared
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if reader.done {
		return
	}
	reader.done = true
	shared.open--
	if shared.open == 0 {
		shared.from.Close()
	}
}
