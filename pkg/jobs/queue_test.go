package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "a"})
	require.Error(t, err)
	assert.False(t, q.Started())
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	handler := func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}
	q := NewQueue("test", handler, QueueConfig{RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "sweep", Type: "sweep"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestQueueCoalescesDuplicateIDs(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	handler := func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}
	q := NewQueue("test", handler, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "sweep"}))
	<-started
	assert.ErrorIs(t, q.Enqueue(Job{ID: "sweep"}), ErrCoalesced)
	close(release)

	require.Eventually(t, func() bool {
		return q.Enqueue(Job{ID: "sweep"}) == nil
	}, time.Second, 10*time.Millisecond)
}
