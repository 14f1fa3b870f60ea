package utils

import (
	"errors"
	"testing"
)

// errCloser is a mock io.Closer that always returns the configured error.
type errCloser struct {
	closeErr error
	closed   bool
}

func (ec *errCloser) Close() error {
	ec.closed = true
	return ec.closeErr
}

// TestCloseWithLog_ClosesTheCloser verifies that the underlying Close is
// actually invoked.
func TestCloseWithLog_ClosesTheCloser(t *testing.T) {
	closer := &errCloser{}
	CloseWithLog(closer)

	if !closer.closed {
		t.Error("expected the closer to be closed")
	}
}

// TestCloseWithLog_ErrorPath verifies that CloseWithLog does not panic when
// the underlying closer returns an error. The error is only logged via slog.
func TestCloseWithLog_ErrorPath(t *testing.T) {
	closer := &errCloser{closeErr: errors.New("close error")}

	// CloseWithLog should not panic — it only logs the error via slog.Warn.
	CloseWithLog(closer)
}

// TestCloseWithLog_NilCloser verifies the nil guard.
func TestCloseWithLog_NilCloser(t *testing.T) {
	CloseWithLog(nil)
}
