package knowledge

import (
	"errors"
	"net/http"
)

// Domain errors for knowledge base operations.
var (
	ErrNotFound     = errors.New("knowledge entry not found")
	ErrDuplicate    = errors.New("knowledge entry already exists")
	ErrInvalidEntry = errors.New("invalid knowledge entry")
	ErrInvalidFile  = errors.New("invalid import file")
)

// MapHTTPStatus maps knowledge domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidEntry), errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
