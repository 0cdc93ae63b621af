package tasks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaskEncoding(t *testing.T) {
	task := formOpinionTask("what is go")
	raw, err := encodeTask(task)
	require.NoError(t, err)
	assert.Contains(t, raw, `"type":"form_opinion"`)
	assert.Contains(t, raw, `"answer_text":"answer"`)

	got, err := decodeTask(map[string]any{payloadField: raw})
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecodeTask_Malformed(t *testing.T) {
	cases := map[string]map[string]any{
		"missing field": {},
		"not a string":  {payloadField: 42},
		"bad json":      {payloadField: "{"},
		"empty type":    {payloadField: `{"agent_id":"` + uuid.NewString() + `"}`},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeTask(values)
			assert.Error(t, err)
		})
	}
}

// Runs against a real server when REDIS_URL is set.
func TestRedisBackend_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	stream := "memora:test:" + uuid.NewString()
	defer client.Del(context.Background(), stream)

	b := NewRedisBackend(client, RedisConfig{
		Stream:  stream,
		Group:   "test",
		Workers: 1,
		Block:   100 * time.Millisecond,
	}, zap.NewNop(), nil)

	got := make(chan domain.TaskDescriptor, 1)
	b.Register(domain.TaskTypeFormOpinion, func(ctx context.Context, task domain.TaskDescriptor) error {
		got <- task
		return nil
	})
	b.Start()
	defer b.Stop()

	task := formOpinionTask("redis")
	require.NoError(t, b.Submit(context.Background(), task))

	select {
	case recv := <-got:
		assert.Equal(t, task, recv)
	case <-time.After(5 * time.Second):
		t.Fatal("task not delivered")
	}
}
