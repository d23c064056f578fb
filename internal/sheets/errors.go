package sheets

import (
	"errors"
	"net/http"
)

// Domain errors for sheet operations.
var (
	ErrNotFound      = errors.New("sheet not found")
	ErrDuplicate     = errors.New("sheet already exists")
	ErrInvalidStatus = errors.New("invalid sheet status")
	ErrInvalidSheet  = errors.New("invalid sheet")
)

// MapHTTPStatus maps sheet domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidSheet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
