// Package lifecycle runs startup hooks, shutdown hooks, and background
// loops against one cancellable context, and reports readiness.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned when hooks outlive the shutdown timeout.
var ErrShutdownTimeout = errors.New("shutdown hooks still running")

// ReadinessChecker reports whether a subsystem can serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// ReadinessFunc adapts a function to ReadinessChecker.
type ReadinessFunc func() bool

func (f ReadinessFunc) Ready() bool { return f() }

// Coordinator owns the process context. Startup hooks run concurrently
// and must finish before Ready can report true. Shutdown hooks and
// background loops start immediately and are awaited by Shutdown.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup  sync.WaitGroup
	shutdown sync.WaitGroup

	mu       sync.RWMutex
	started  bool
	checkers map[string]ReadinessChecker
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		checkers: make(map[string]ReadinessChecker),
	}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently with the other startup hooks.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnShutdown runs fn now. fn is expected to block on Context().Done()
// before releasing resources.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdown.Go(fn)
}

// Go runs a background loop that must return once ctx is cancelled.
func (c *Coordinator) Go(fn func(ctx context.Context)) {
	c.shutdown.Go(func() { fn(c.ctx) })
}

// Track registers a named checker consulted by Ready and Pending.
// Tracking the same name again replaces the earlier checker.
func (c *Coordinator) Track(name string, checker ReadinessChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkers[name] = checker
}

// WaitForStartup blocks until every startup hook has returned.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Pending lists, in sorted order, the tracked checkers that are not ready.
// Before startup completes it reports "startup".
func (c *Coordinator) Pending() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return []string{"startup"}
	}

	var pending []string
	for name, checker := range c.checkers {
		if !checker.Ready() {
			pending = append(pending, name)
		}
	}
	slices.Sort(pending)
	return pending
}

// Ready reports whether startup has completed and every tracked checker
// is ready.
func (c *Coordinator) Ready() bool {
	return len(c.Pending()) == 0
}

// Shutdown cancels the context and waits up to timeout for shutdown hooks
// and background loops to return.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdown.Wait()
		close(done)
	}()

	wait, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	select {
	case <-done:
		return nil
	case <-wait.Done():
		return fmt.Errorf("shutdown after %v: %w", timeout, errors.Join(ErrShutdownTimeout, wait.Err()))
	}
}
