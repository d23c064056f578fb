// Package handlers holds the request decoding and JSON response helpers
// every API module uses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

type errorBody struct {
	Error string `json:"error"`
}

// RespondJSON writes data as a JSON body with the given status code.
// A 204 writes headers only.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes err as {"error": "..."}. 5xx responses are logged at
// error level, everything else at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level, msg := slog.LevelWarn, "request rejected"
	if status >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "request failed"
	}
	logger.Log(context.Background(), level, msg, "status", status, "error", err)

	RespondJSON(w, status, errorBody{Error: err.Error()})
}

// DecodeJSON reads the request body into a T.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, ErrEmptyBody
		}
		return v, fmt.Errorf("decode body: %w", err)
	}
	return v, nil
}

// PathUUID parses the named path value as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}
