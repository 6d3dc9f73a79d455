// Package tasks provides the background task abstraction used for
// fire-and-forget work such as attestation submission. Spawned tasks return
// a handle so tests can await completion deterministically instead of
// racing against detached goroutines.
package tasks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"zkproxy/shared"
)

// ErrSpawnerClosed is reported by handles for tasks scheduled after Close.
var ErrSpawnerClosed = errors.New("task spawner is closed")

// Handle tracks a single spawned task.
type Handle struct {
	name string
	done chan struct{}
	err  error // written once, before done is closed
}

// Name returns the task name the handle was spawned with.
func (h *Handle) Name() string { return h.name }

// Done is closed when the task has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task's error. Only valid after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or the context is canceled. Waiting
// never cancels the task itself.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func completedHandle(name string, err error) *Handle {
	h := &Handle{name: name, done: make(chan struct{}), err: err}
	close(h.done)
	return h
}

// Spawner schedules background work.
type Spawner interface {
	Spawn(name string, fn func(ctx context.Context) error) *Handle
}

// GoSpawner runs each task on its own goroutine. Once a task has started it
// runs to completion with a background context: Close only prevents tasks
// that have not started yet, it never interrupts in-flight I/O.
type GoSpawner struct {
	logger *shared.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewGoSpawner creates a spawner. A nil logger is replaced with a no-op one.
func NewGoSpawner(logger *shared.Logger) *GoSpawner {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &GoSpawner{logger: logger}
}

// Spawn schedules fn on a new goroutine and returns its handle. The task's
// error is recorded on the handle and logged; it is never re-raised.
func (s *GoSpawner) Spawn(name string, fn func(ctx context.Context) error) *Handle {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return completedHandle(name, ErrSpawnerClosed)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	h := &Handle{name: name, done: make(chan struct{})}
	go func() {
		defer s.wg.Done()
		defer close(h.done)
		if err := fn(context.Background()); err != nil {
			h.err = err
			s.logger.Warn("background task failed",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}()
	return h
}

// Close stops accepting new tasks and waits for in-flight tasks to finish.
func (s *GoSpawner) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
