package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document uploads.
var (
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
	ErrInvalidFile      = errors.New("invalid file")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrUnreadable       = errors.New("unable to read file")
	ErrMissingRecording = errors.New("recording number not found")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrUnsupportedType) {
		return http.StatusUnsupportedMediaType
	}
	if errors.Is(err, ErrInvalidFile) ||
		errors.Is(err, ErrUnreadable) ||
		errors.Is(err, ErrMissingRecording) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
