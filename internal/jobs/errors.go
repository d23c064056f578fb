package jobs

import "errors"

// Errors returned by schedulers.
var (
	ErrUnknownKind = errors.New("unknown job kind")
	ErrInvalidJob  = errors.New("invalid job")
)
