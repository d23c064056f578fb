// Package jobs defines the task payloads that drive sheet verification and
// the schedulers that deliver them: an inline scheduler that runs handlers
// synchronously and a Redis-backed queue with bounded retries.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies the handler for a job.
type Kind string

const (
	// KindVerify verifies one pending recording.
	KindVerify Kind = "verify"
	// KindVerifyAll schedules verification of every pending recording.
	KindVerifyAll Kind = "verify_all"
)

// Job is one unit of scheduled work. Attempt counts prior failed deliveries.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Recording  string    `json:"recording,omitempty"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// Validate checks that the job names a known kind and carries a recording
// when the kind requires one.
func (j Job) Validate() error {
	switch j.Kind {
	case KindVerify:
		if j.Recording == "" {
			return fmt.Errorf("%w: %s requires a recording", ErrInvalidJob, j.Kind)
		}
	case KindVerifyAll:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, j.Kind)
	}
	return nil
}

// Handler processes jobs of one kind.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job Job) error

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Scheduler accepts jobs for delivery.
type Scheduler interface {
	Enqueue(ctx context.Context, job Job) error
}

// Registry maps job kinds to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// Register binds a handler to a kind, replacing any previous binding.
func (r *Registry) Register(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[Kind]Handler)
	}
	r.handlers[kind] = h
}

// Dispatch runs the handler registered for the job's kind.
func (r *Registry) Dispatch(ctx context.Context, job Job) error {
	r.mu.RLock()
	h, ok := r.handlers[job.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	return h.Handle(ctx, job)
}

// Inline runs handlers synchronously inside Enqueue. Handler errors are
// returned to the caller without retry.
type Inline struct {
	Registry
	logger *slog.Logger
}

// NewInline creates an inline scheduler.
func NewInline(logger *slog.Logger) *Inline {
	return &Inline{logger: logger.With("system", "jobs", "scheduler", "inline")}
}

// Enqueue validates and immediately dispatches the job.
func (i *Inline) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	i.logger.Debug("dispatching job", "kind", job.Kind, "recording", job.Recording)
	return i.Dispatch(ctx, job)
}
