package stream

// Convert derives a consumer of U from a consumer of T by applying transform
// to every chunk as it is pulled. A transform error becomes the derived
// stream's terminal error. Convert consumes the receiver: the original
// consumer must not be used afterwards, and closing the derived consumer
// releases it.
func Convert[T, U any](consumer *Consumer[T], transform func(T) (U, error)) *Consumer[U] {
	return &Consumer[U]{src: &convertSource[T, U]{from: consumer, transform: transform}}
}

// AsAny erases the element type so a typed stream can travel through graph
// plumbing, which moves values as any.
func AsAny[T any](consumer *Consumer[T]) *Consumer[any] {
	return Convert(consumer, func(chunk T) (any, error) { return chunk, nil })
}

type convertSource[T, U any] struct {
	from      *Consumer[T]
	transform func(T) (U, error)
}

func (s *convertSource[T, U]) next() (U, error) {
	chunk, err := s.from.Recv()
	if err != nil {
		var zero U
		return zero, err
	}
	return s.transform(chunk)
}

func (s *convertSource[T, U]) close() {
	s.from.Close()
}
