package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// StatusError is a failure reported by a remote service with a status code.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Code, e.Body)
}

type temporary struct {
	err error
}

func (t *temporary) Error() string { return t.err.Error() }
func (t *temporary) Unwrap() error { return t.err }

// Temporary marks err as retriable.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &temporary{err: err}
}

// IsRetriable reports whether err is worth another attempt: server-class
// status codes, timeouts and errors marked with Temporary.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}

	var tmp *temporary
	if errors.As(err, &tmp) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// StatusCode returns the remote status code carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
