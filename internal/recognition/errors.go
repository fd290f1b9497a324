package recognition

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means every attempt failed with a retriable error.
	ErrUnavailable = errors.New("recognition service unavailable")
	// ErrTimeout means the last attempt ran out of time.
	ErrTimeout       = errors.New("recognition timed out")
	ErrNotConfigured = errors.New("recognition credentials not configured")
	ErrMalformed     = errors.New("malformed recognition response")
)

// ProviderError is an error reported in the provider's response body.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}
