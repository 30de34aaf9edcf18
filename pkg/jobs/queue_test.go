package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen[task.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, q.Enqueue(Task{ID: id, Type: "noop"}))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for task")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, task Task) error { return nil }, QueueConfig{})
	err := q.Enqueue(Task{ID: "t1"})
	require.Error(t, err)
}

func TestQueueRetriesFailedTask(t *testing.T) {
	attempts := make(chan int, 4)
	q := NewQueue("test", func(ctx context.Context, task Task) error {
		attempts <- task.Attempt
		if task.Attempt == 0 {
			return assert.AnError
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{ID: "t1", Type: "flaky"}))

	select {
	case first := <-attempts:
		assert.Equal(t, 0, first)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first attempt")
	}
	select {
	case second := <-attempts:
		assert.Equal(t, 1, second)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retry")
	}
}
