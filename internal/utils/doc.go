// Package utils provides shared low-level helpers used throughout the
// internals: string truncation for log and span attributes, and logged
// resource cleanup.
//
// Key entry points: [TruncateString] for capping attribute values, and
// [CloseWithLog] for deferred cleanup where the close error can only be
// logged.
package utils
