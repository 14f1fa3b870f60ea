package stream

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
)

// Merge rules registered for custom chunk types, keyed by the chunk's
// dynamic type. Built-in rules cover strings, slices, and maps.
var (
	concatMu    sync.RWMutex
	concatFuncs = make(map[reflect.Type]func([]any) (any, error))
)

// RegisterConcatFunc installs fn as the merge rule used by Concat and
// ConcatAny for chunks of type T. Registration usually happens in an init
// function; registering again for the same type replaces the previous rule.
func RegisterConcatFunc[T any](fn func([]T) (T, error)) {
	concatMu.Lock()
	defer concatMu.Unlock()

	chunkType := reflect.TypeFor[T]()
	concatFuncs[chunkType] = func(chunks []any) (any, error) {
		typed := make([]T, len(chunks))
		for i, chunk := range chunks {
			value, ok := chunk.(T)
			if !ok {
				return nil, fmt.Errorf("stream: concat chunk %d is %T, expected %s", i, chunk, chunkType)
			}
			typed[i] = value
		}
		return fn(typed)
	}
}

func lookupConcatFunc(chunkType reflect.Type) (func([]any) (any, error), bool) {
	concatMu.RLock()
	defer concatMu.RUnlock()
	fn, ok := concatFuncs[chunkType]
	return fn, ok
}

// Concat drains the consumer and merges every chunk into a single value.
//
// Outcomes, in order of precedence:
//   - a terminal producer error aborts the merge: Concat returns that error
//     and no partial value;
//   - zero chunks yield the zero value of T with a nil error — an empty
//     stream is not a failure;
//   - a single chunk is returned unchanged;
//   - multiple chunks merge by the rule registered for their type, falling
//     back to string concatenation, slice append, or map merge (later chunks
//     overwrite earlier keys), all in arrival order;
//   - chunk types with no applicable rule fail with a descriptive error.
func Concat[T any](consumer *Consumer[T]) (T, error) {
	var zero T
	var chunks []T
	for {
		chunk, err := consumer.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return zero, err
		}
		chunks = append(chunks, chunk)
	}

	switch len(chunks) {
	case 0:
		return zero, nil
	case 1:
		return chunks[0], nil
	}

	boxed := make([]any, len(chunks))
	for i, chunk := range chunks {
		boxed[i] = chunk
	}
	merged, err := mergeChunks(boxed)
	if err != nil {
		return zero, err
	}
	value, ok := merged.(T)
	if !ok {
		return zero, fmt.Errorf("stream: merged value is %T, expected %s", merged, reflect.TypeFor[T]())
	}
	return value, nil
}

// ConcatAny merges a type-erased stream, as produced by graph plumbing. The
// merge rule is chosen from the dynamic type of the first chunk; chunks of a
// different type fail the merge.
func ConcatAny(consumer *Consumer[any]) (any, error) {
	var chunks []any
	for {
		chunk, err := consumer.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	switch len(chunks) {
	case 0:
		return nil, nil
	case 1:
		return chunks[0], nil
	}
	return mergeChunks(chunks)
}

func mergeChunks(chunks []any) (any, error) {
	first := reflect.ValueOf(chunks[0])
	if !first.IsValid() {
		return nil, errors.New("stream: cannot merge nil chunks")
	}
	chunkType := first.Type()

	if fn, ok := lookupConcatFunc(chunkType); ok {
		return fn(chunks)
	}

	switch chunkType.Kind() {
	case reflect.String:
		var builder strings.Builder
		for i, chunk := range chunks {
			value, err := chunkValue(i, chunk, chunkType)
			if err != nil {
				return nil, err
			}
			builder.WriteString(value.String())
		}
		if chunkType == reflect.TypeFor[string]() {
			return builder.String(), nil
		}
		merged := reflect.New(chunkType).Elem()
		merged.SetString(builder.String())
		return merged.Interface(), nil

	case reflect.Slice:
		total := 0
		for _, chunk := range chunks {
			total += reflect.ValueOf(chunk).Len()
		}
		merged := reflect.MakeSlice(chunkType, 0, total)
		for i, chunk := range chunks {
			value, err := chunkValue(i, chunk, chunkType)
			if err != nil {
				return nil, err
			}
			merged = reflect.AppendSlice(merged, value)
		}
		return merged.Interface(), nil

	case reflect.Map:
		merged := reflect.MakeMap(chunkType)
		for i, chunk := range chunks {
			value, err := chunkValue(i, chunk, chunkType)
			if err != nil {
				return nil, err
			}
			iter := value.MapRange()
			for iter.Next() {
				merged.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		return merged.Interface(), nil

	default:
		return nil, fmt.Errorf("stream: no merge rule for chunks of type %s; register one with RegisterConcatFunc", chunkType)
	}
}

func chunkValue(index int, chunk any, want reflect.Type) (reflect.Value, error) {
	value := reflect.ValueOf(chunk)
	if !value.IsValid() || value.Type() != want {
		return reflect.Value{}, fmt.Errorf("stream: concat chunk %d is %T, expected %s", index, chunk, want)
	}
	return value, nil
}
