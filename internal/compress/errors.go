package compress

import "errors"

var (
	ErrTimeout           = errors.New("compression timed out")
	ErrWorkerUnavailable = errors.New("compression worker unavailable")
	ErrCompressionFailed = errors.New("image compression failed")
	ErrInvalidConfig     = errors.New("invalid compression config")
)
