// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics, and structured logging across the graph engine.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. The engine accepts a
// Provider at compile time and records a span per run and per node dispatch,
// plus counters and histograms for runs, dispatches, interrupts, and
// durations. A nil Provider disables all of it at negligible cost.
//
// Callers propagate an active [Provider] and [Span] through a
// [context.Context] using [ContextWithObserver] and [ContextWithSpan]; they
// are retrieved with [ObserverFromContext] and [SpanFromContext].
//
// The semconv.go file contains the attribute-key constants the engine
// records, so external Provider implementations can rely on stable names.
package observability
