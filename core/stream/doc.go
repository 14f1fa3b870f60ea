// Package stream implements the producer/consumer pair through which the
// engine moves chunked values: model tokens, document fragments, any output a
// node emits incrementally instead of all at once.
//
// A pair is created with [NewPair]. The [Producer] half pushes chunks, an
// optional terminal error, or a clean end-of-stream; the [Consumer] half pulls
// them one [Consumer.Recv] at a time. Every Recv resolves to exactly one of
// three outcomes: a chunk, a terminal error, or io.EOF for a clean end.
// Backpressure is deliberately absent: chunks buffer without bound, so a
// producing node never stalls the scheduler that dispatched it.
//
// Consumers are strictly single-owner. Ownership moves with the value; the
// goroutine holding a Consumer is the only one that may call Recv on it.
// Fan-out to several readers goes through [Consumer.Copy], which replays a
// shared buffer, and a finished stream collapses into a single value with
// [Concat] (or [ConcatAny] for type-erased graph traffic).
//
// Example:
//
//	consumer, producer := stream.NewPair[string]()
//	go func() {
//	    defer producer.Close()
//	    producer.Send("hello, ")
//	    producer.Send("world")
//	}()
//	text, err := stream.Concat(consumer) // "hello, world"
package stream
