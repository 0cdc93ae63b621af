// Package tasks runs background work submitted by request handlers.
//
// Two backends are provided: an in-process queue drained by a fixed pool of
// workers, and a Redis Streams backend that survives restarts and lets
// several server processes share the work through a consumer group.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("task queue full")
	ErrNoHandler = errors.New("no handler registered for task type")
	ErrStopped   = errors.New("task backend stopped")
	ErrPanic     = errors.New("task handler panicked")
)

const defaultTaskTimeout = 60 * time.Second

// Handler executes one task. The context carries the backend's per-task
// timeout and is never derived from the submitter's context.
type Handler func(ctx context.Context, task domain.TaskDescriptor) error

// Backend accepts tasks without blocking the caller and runs them later on
// its own goroutines.
type Backend interface {
	Submit(ctx context.Context, task domain.TaskDescriptor) error
	Register(taskType string, h Handler)
	Start()
	Stop()
}

// dispatcher holds the handler table and runs single tasks. Both backends
// embed it.
type dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newDispatcher(timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) dispatcher {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return dispatcher{
		handlers: make(map[string]Handler),
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}
}

func (d *dispatcher) Register(taskType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[taskType] = h
}

func (d *dispatcher) handler(taskType string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[taskType]
}

// execute runs the task under its own timeout, recovering panics. Failures
// are logged and counted here so the worker loops stay simple.
func (d *dispatcher) execute(parent context.Context, task domain.TaskDescriptor) (err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
			d.logger.Error("task failed",
				zap.String("task_type", task.Type),
				zap.String("agent_id", task.AgentID.String()),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
		} else {
			d.logger.Debug("task completed",
				zap.String("task_type", task.Type),
				zap.String("agent_id", task.AgentID.String()),
				zap.Duration("duration", time.Since(start)))
		}
		d.metrics.TaskProcessed(task.Type, outcome)
	}()

	h := d.handler(task.Type)
	if h == nil {
		return fmt.Errorf("%w: %q", ErrNoHandler, task.Type)
	}

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return h(ctx, task)
}
