// Package slogobs provides an observability.Provider implementation backed by
// Go's standard library log/slog package.
// It routes span events, in-memory metrics, and levelled logging through a
// slog.Logger, which makes it the zero-infrastructure way to watch a graph
// run. The main entry point is [New]; output format and log level can be
// tuned with [WithFormat], [WithLevel], [WithOutput], and [WithLogger], or
// through the EINO_LOG_FORMAT and EINO_LOG_LEVEL environment variables.
package slogobs
