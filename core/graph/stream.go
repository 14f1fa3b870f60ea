package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/blueskygzhz/eino-cpp-sub002/core/stream"
)

// monitorStream interposes a relay between a node's stream output and its
// downstream readers. The relay counts chunks, fires the stream callbacks,
// and forwards the terminal outcome, so observability sees the stream's full
// life without the scheduler ever blocking on it.
//
// If every downstream reader closes early, the relay closes the source so
// the producing node's goroutine is not left feeding a dead stream.
func (runner *graphRunner) monitorStream(ctx context.Context, info *NodeInfo, source *stream.Consumer[any]) *stream.Consumer[any] {
	consumer, producer := stream.NewPair[any]()
	runner.trackStream(source)
	runner.trackStream(consumer)

	go func() {
		chunks := 0
		for {
			chunk, err := source.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					producer.Close()
				} else {
					// Best-effort: the reader may already be gone.
					_ = producer.SendError(err) //nolint:errcheck
				}
				break
			}
			if sendErr := producer.Send(chunk); sendErr != nil {
				// Downstream released the stream; stop pulling.
				source.Close()
				break
			}
			chunks++
		}
		runner.callbacks.nodeStreamEnd(ctx, info, chunks)
		runner.observeStreamEnd(ctx, info.Name, chunks)
	}()

	return consumer
}

// trackStream registers a consumer so a failed or canceled run can release
// every reader still blocked on it. Tracked from both the scheduler and task
// goroutines, hence the lock.
func (runner *graphRunner) trackStream(consumer *stream.Consumer[any]) {
	runner.streamsMu.Lock()
	defer runner.streamsMu.Unlock()
	runner.openStreams = append(runner.openStreams, consumer)
}

// closeOpenStreams releases every tracked stream. Closing is idempotent, so
// streams that already ended are unaffected.
func (runner *graphRunner) closeOpenStreams() {
	runner.streamsMu.Lock()
	defer runner.streamsMu.Unlock()
	for _, consumer := range runner.openStreams {
		consumer.Close()
	}
	runner.openStreams = nil
}

// projectStream derives a stream that carries one field of each chunk,
// for field-mapped data edges fed by a streaming producer. Chunks must be
// projectable individually; a chunk without the field ends the derived
// stream with an error.
func projectStream(consumer *stream.Consumer[any], field string) *stream.Consumer[any] {
	return stream.Convert(consumer, func(chunk any) (any, error) {
		return extractField(chunk, field)
	})
}

// extractField reads a named field out of an output value. Map outputs are
// indexed directly; struct outputs (or pointers to structs) fall back to the
// exported field of that name.
func extractField(output any, field string) (any, error) {
	switch typed := output.(type) {
	case map[string]any:
		value, exists := typed[field]
		if !exists {
			return nil, fmt.Errorf("no field %q in output map", field)
		}
		return value, nil
	case map[string]string:
		value, exists := typed[field]
		if !exists {
			return nil, fmt.Errorf("no field %q in output map", field)
		}
		return value, nil
	}

	value := reflect.ValueOf(output)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, fmt.Errorf("no field %q in nil output", field)
		}
		value = value.Elem()
	}
	if value.Kind() == reflect.Struct {
		fieldValue := value.FieldByName(field)
		if fieldValue.IsValid() && fieldValue.CanInterface() {
			return fieldValue.Interface(), nil
		}
	}
	return nil, fmt.Errorf("no field %q in output of type %T", field, output)
}

// outputAsStream shapes a final output for the Stream entry point: stream
// outputs pass through live, plain values become a single-chunk stream.
func outputAsStream(output any) *stream.Consumer[any] {
	if consumer, isStream := output.(*stream.Consumer[any]); isStream {
		return consumer
	}
	if output == nil {
		// A skipped output node has no result; the stream just ends.
		return stream.FromSlice[any](nil)
	}
	return stream.FromSlice([]any{output})
}
