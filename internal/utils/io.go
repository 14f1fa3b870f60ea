package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes the given closer and logs a warning if closing fails.
// It is intended for deferred cleanup of response bodies and similar
// resources where the close error cannot be returned to the caller but
// should not be silently discarded.
//
// Example:
//
//	defer utils.CloseWithLog(response.Body)
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
