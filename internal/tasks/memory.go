package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

type MemoryConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// MemoryBackend is a bounded in-process queue drained by a fixed worker pool.
// Queued tasks are lost if the process exits before Stop drains them.
type MemoryBackend struct {
	dispatcher

	workers int
	queue   chan domain.TaskDescriptor
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// mu orders Submit against Stop so nothing is enqueued after the
	// workers have drained.
	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

func NewMemoryBackend(cfg MemoryConfig, logger *zap.Logger, m *metrics.Metrics) *MemoryBackend {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &MemoryBackend{
		dispatcher: newDispatcher(cfg.TaskTimeout, logger, m),
		workers:    cfg.Workers,
		queue:      make(chan domain.TaskDescriptor, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

// Submit enqueues the task or fails immediately with ErrQueueFull.
func (b *MemoryBackend) Submit(ctx context.Context, task domain.TaskDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.metrics.TaskSubmitted(metrics.OutcomeRejected)
		return ErrStopped
	}

	select {
	case b.queue <- task:
		b.metrics.TaskSubmitted(metrics.OutcomeOK)
		return nil
	default:
		b.metrics.TaskSubmitted(metrics.OutcomeRejected)
		return ErrQueueFull
	}
}

func (b *MemoryBackend) Start() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	b.logger.Info("task workers started",
		zap.String("backend", "memory"),
		zap.Int("workers", b.workers),
		zap.Int("queue_size", cap(b.queue)))
}

func (b *MemoryBackend) worker(id int) {
	defer b.wg.Done()
	for {
		select {
		case task := <-b.queue:
			_ = b.execute(context.Background(), task)
		case <-b.stopCh:
			b.drain()
			b.logger.Debug("task worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// drain runs whatever is still buffered so accepted tasks are not dropped on
// a clean shutdown.
func (b *MemoryBackend) drain() {
	for {
		select {
		case task := <-b.queue:
			_ = b.execute(context.Background(), task)
		default:
			return
		}
	}
}

// Stop rejects further submissions, finishes queued tasks and waits for the
// workers to exit. It is safe to call more than once.
func (b *MemoryBackend) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.stopCh)
		b.wg.Wait()
		b.logger.Info("task workers stopped", zap.String("backend", "memory"))
	})
}

// Pending reports the number of buffered tasks.
func (b *MemoryBackend) Pending() int {
	return len(b.queue)
}
