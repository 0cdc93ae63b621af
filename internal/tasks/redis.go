package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultStream        = "memora:tasks"
	defaultGroup         = "memora-workers"
	defaultBlock         = 2 * time.Second
	defaultClaimIdle     = 5 * time.Minute
	defaultSubmitTimeout = 500 * time.Millisecond
	defaultMaxLen        = 100_000

	payloadField = "task"
)

type RedisConfig struct {
	Stream   string
	Group    string
	Consumer string
	Workers  int

	TaskTimeout   time.Duration
	SubmitTimeout time.Duration
	// Block bounds each XREADGROUP call so workers notice Stop promptly.
	Block time.Duration
	// ClaimIdle is how long an entry may sit unacknowledged in another
	// consumer's pending list before this consumer takes it over.
	ClaimIdle time.Duration
	MaxLen    int64
}

// RedisBackend stores tasks in a Redis stream and consumes them through a
// consumer group. Entries are acknowledged after their handler returns, so a
// crash mid-task leaves the entry pending until another worker claims it.
type RedisBackend struct {
	dispatcher

	client *redis.Client
	cfg    RedisConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopped  atomic.Bool
	stopOnce sync.Once
}

func NewRedisBackend(client *redis.Client, cfg RedisConfig, logger *zap.Logger, m *metrics.Metrics) *RedisBackend {
	if cfg.Stream == "" {
		cfg.Stream = defaultStream
	}
	if cfg.Group == "" {
		cfg.Group = defaultGroup
	}
	if cfg.Consumer == "" {
		cfg.Consumer = defaultConsumerName()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.Block <= 0 {
		cfg.Block = defaultBlock
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = defaultClaimIdle
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = defaultMaxLen
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBackend{
		dispatcher: newDispatcher(cfg.TaskTimeout, logger, m),
		client:     client,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "memora"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

// Submit appends the task to the stream. The XADD is bounded by
// SubmitTimeout so a slow Redis cannot stall the caller.
func (b *RedisBackend) Submit(ctx context.Context, task domain.TaskDescriptor) error {
	if b.stopped.Load() {
		b.metrics.TaskSubmitted(metrics.OutcomeRejected)
		return ErrStopped
	}

	raw, err := encodeTask(task)
	if err != nil {
		b.metrics.TaskSubmitted(metrics.OutcomeRejected)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.SubmitTimeout)
	defer cancel()

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.Stream,
		MaxLen: b.cfg.MaxLen,
		Approx: true,
		Values: map[string]any{payloadField: raw},
	}).Err()
	if err != nil {
		b.metrics.TaskSubmitted(metrics.OutcomeRejected)
		return fmt.Errorf("xadd: %w", err)
	}
	b.metrics.TaskSubmitted(metrics.OutcomeOK)
	return nil
}

func (b *RedisBackend) Start() {
	ctx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	err := ensureGroup(ctx, b.client, b.cfg.Stream, b.cfg.Group)
	cancel()
	if err != nil {
		b.logger.Error("failed to create task consumer group",
			zap.String("stream", b.cfg.Stream),
			zap.String("group", b.cfg.Group),
			zap.Error(err))
	}

	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker(fmt.Sprintf("%s-%d", b.cfg.Consumer, i))
	}
	b.wg.Add(1)
	go b.claimer(b.cfg.Consumer + "-claim")

	b.logger.Info("task workers started",
		zap.String("backend", "redis"),
		zap.String("stream", b.cfg.Stream),
		zap.String("group", b.cfg.Group),
		zap.Int("workers", b.cfg.Workers))
}

func ensureGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

func (b *RedisBackend) worker(consumer string) {
	defer b.wg.Done()
	for b.ctx.Err() == nil {
		streams, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    b.cfg.Group,
			Consumer: consumer,
			Streams:  []string{b.cfg.Stream, ">"},
			Count:    1,
			Block:    b.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || b.ctx.Err() != nil {
				continue
			}
			b.logger.Warn("xreadgroup failed", zap.String("consumer", consumer), zap.Error(err))
			b.sleep(time.Second)
			continue
		}
		for _, st := range streams {
			for _, msg := range st.Messages {
				b.handle(msg)
			}
		}
	}
}

// claimer periodically takes over entries left pending by consumers that
// died mid-task.
func (b *RedisBackend) claimer(consumer string) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.ClaimIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			start := "0-0"
			for b.ctx.Err() == nil {
				msgs, next, err := b.client.XAutoClaim(b.ctx, &redis.XAutoClaimArgs{
					Stream:   b.cfg.Stream,
					Group:    b.cfg.Group,
					Consumer: consumer,
					MinIdle:  b.cfg.ClaimIdle,
					Start:    start,
					Count:    16,
				}).Result()
				if err != nil {
					if b.ctx.Err() == nil {
						b.logger.Warn("xautoclaim failed", zap.Error(err))
					}
					break
				}
				if len(msgs) > 0 {
					b.logger.Info("reclaimed pending tasks", zap.Int("count", len(msgs)))
				}
				for _, msg := range msgs {
					b.handle(msg)
				}
				if next == "0-0" || len(msgs) == 0 {
					break
				}
				start = next
			}
		}
	}
}

func (b *RedisBackend) handle(msg redis.XMessage) {
	task, err := decodeTask(msg.Values)
	if err != nil {
		// Undecodable entries would be reclaimed forever; acknowledge and drop.
		b.logger.Error("dropping malformed task", zap.String("id", msg.ID), zap.Error(err))
		b.metrics.TaskProcessed("unknown", metrics.OutcomeError)
		b.ack(msg.ID)
		return
	}

	err = b.execute(b.ctx, task)
	if errors.Is(err, context.Canceled) && b.ctx.Err() != nil {
		// Leave it pending for another consumer.
		return
	}
	b.ack(msg.ID)
}

func (b *RedisBackend) ack(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.XAck(ctx, b.cfg.Stream, b.cfg.Group, id).Err(); err != nil {
		b.logger.Warn("xack failed", zap.String("id", id), zap.Error(err))
	}
}

func (b *RedisBackend) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-b.ctx.Done():
	}
}

// Stop rejects further submissions, cancels in-flight tasks and waits for
// the workers to exit. A task that reports cancellation is left pending and
// reclaimed after restart, as are entries not yet read.
func (b *RedisBackend) Stop() {
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		b.cancel()
		b.wg.Wait()
		b.logger.Info("task workers stopped", zap.String("backend", "redis"))
	})
}

func encodeTask(task domain.TaskDescriptor) (string, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}
	return string(raw), nil
}

func decodeTask(values map[string]any) (domain.TaskDescriptor, error) {
	var task domain.TaskDescriptor
	raw, ok := values[payloadField].(string)
	if !ok {
		return task, fmt.Errorf("missing %q field", payloadField)
	}
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return task, fmt.Errorf("unmarshal task: %w", err)
	}
	if task.Type == "" {
		return task, errors.New("task type is empty")
	}
	return task, nil
}
