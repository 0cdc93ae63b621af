package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func formOpinionTask(query string) domain.TaskDescriptor {
	return domain.TaskDescriptor{
		Type:       domain.TaskTypeFormOpinion,
		AgentID:    uuid.New(),
		AnswerText: "answer",
		Query:      query,
	}
}

func TestMemoryBackend_RunsSubmittedTasks(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 2, QueueSize: 8}, zap.NewNop(), nil)

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 3)
	b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
		mu.Lock()
		seen = append(seen, task.Query)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	b.Start()
	defer b.Stop()

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, b.Submit(context.Background(), formOpinionTask(q)))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestMemoryBackend_SubmitDoesNotBlockWhenFull(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 1, QueueSize: 1}, zap.NewNop(), nil)
	// Not started: nothing drains the queue.
	require.NoError(t, b.Submit(context.Background(), formOpinionTask("first")))

	start := time.Now()
	err := b.Submit(context.Background(), formOpinionTask("second"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, b.Pending())
}

func TestMemoryBackend_HandlerContextIsIndependentOfSubmitter(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 1, QueueSize: 1, TaskTimeout: time.Second}, zap.NewNop(), nil)

	result := make(chan error, 1)
	b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			result <- errors.New("expected task timeout on handler context")
			return nil
		}
		result <- ctx.Err()
		return nil
	})
	b.Start()
	defer b.Stop()

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Submit(reqCtx, formOpinionTask("q")))
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestMemoryBackend_SubmitWithCancelledContext(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{}, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Submit(ctx, formOpinionTask("q")), context.Canceled)
	assert.Equal(t, 0, b.Pending())
}

func TestMemoryBackend_PanicAndErrorDoNotKillWorkers(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 1, QueueSize: 4}, zap.NewNop(), nil)

	var calls atomic.Int32
	done := make(chan struct{})
	b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
		switch calls.Add(1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("handler failed")
		default:
			close(done)
			return nil
		}
	})
	b.Start()
	defer b.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Submit(context.Background(), formOpinionTask("q")))
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestMemoryBackend_UnknownTypeIsLoggedNotFatal(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 1}, zap.NewNop(), nil)
	err := b.execute(context.Background(), domain.TaskDescriptor{Type: "nope"})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestMemoryBackend_StopDrainsQueue(t *testing.T) {
	b := NewMemoryBackend(MemoryConfig{Workers: 1, QueueSize: 16}, zap.NewNop(), nil)

	var count atomic.Int32
	b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
		count.Add(1)
		return nil
	})
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Submit(context.Background(), formOpinionTask("q")))
	}
	b.Start()
	b.Stop()

	assert.Equal(t, int32(10), count.Load())
	assert.ErrorIs(t, b.Submit(context.Background(), formOpinionTask("late")), ErrStopped)

	// Idempotent.
	b.Stop()
}

func TestMemoryBackend_SubmitRacingStopRunsEveryAcceptedTask(t *testing.T) {
	for round := 0; round < 20; round++ {
		b := NewMemoryBackend(MemoryConfig{Workers: 2, QueueSize: 1024}, zap.NewNop(), nil)

		var ran atomic.Int32
		b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
			ran.Add(1)
			return nil
		})
		b.Start()

		var (
			accepted atomic.Int32
			wg       sync.WaitGroup
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if b.Submit(context.Background(), formOpinionTask("q")) == nil {
						accepted.Add(1)
					}
				}
			}()
		}
		b.Stop()
		wg.Wait()

		assert.Equal(t, accepted.Load(), ran.Load(), "round %d", round)
		assert.Zero(t, b.Pending())
	}
}
