package physicians

import (
	"errors"
	"net/http"
)

// Domain errors for physician operations.
var (
	ErrNotFound          = errors.New("physician not found")
	ErrDuplicate         = errors.New("physician already exists")
	ErrNotInDirectory    = errors.New("physician not in directory")
	ErrInsufficientHints = errors.New("insufficient physician hints")
)

// MapHTTPStatus maps physician domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientHints):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
