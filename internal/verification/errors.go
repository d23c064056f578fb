package verification

import "errors"

// Errors recorded on a Result when the model judgement could not be used.
var (
	ErrMalformedResponse = errors.New("malformed verification response")
	ErrNoContent         = errors.New("no clinical content to verify")
)
