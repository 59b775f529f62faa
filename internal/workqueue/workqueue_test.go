package workqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPullPolicyFavorsHighTwoToOne(t *testing.T) {
	q := New(1)

	var mu sync.Mutex
	var order []string
	for i := 0; i < 2; i++ {
		q.Push(Low, func(ctx context.Context) {})
	}
	for i := 0; i < 6; i++ {
		q.Push(High, func(ctx context.Context) {})
	}

	// Drain manually (without starting workers) via pullLocked to assert
	// the exact pull sequence deterministically.
	q.mu.Lock()
	for len(q.high)+len(q.low) > 0 {
		before := len(q.high)
		_ = q.pullLocked()
		mu.Lock()
		if len(q.high) < before {
			order = append(order, "high")
		} else {
			order = append(order, "low")
		}
		mu.Unlock()
	}
	q.mu.Unlock()

	require.Equal(t, []string{"high", "high", "low", "high", "high", "low", "high", "high"}, order)
}

func TestPullPolicyFallsThroughWhenChosenQueueEmpty(t *testing.T) {
	q := New(1)
	q.Push(Low, func(ctx context.Context) {})

	q.mu.Lock()
	// No high items at all: every pull must come from low.
	t1 := q.pullLocked()
	q.mu.Unlock()
	require.NotNil(t, t1)
	require.Empty(t, q.low)
}

func TestQueueRunsPushedTasks(t *testing.T) {
	q := New(2)
	done := make(chan struct{})
	var ran int32
	var mu sync.Mutex
	q.Push(High, func(ctx context.Context) {
		mu.Lock()
		ran++
		mu.Unlock()
		close(done)
	})

	q.Start(context.Background())
	defer q.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	mu.Lock()
	require.Equal(t, int32(1), ran)
	mu.Unlock()
}

func TestPauseBlocksWorkerUntilResume(t *testing.T) {
	q := New(1)
	q.Start(context.Background())
	defer q.Stop()

	q.Pause()

	ran := make(chan struct{})
	q.Push(High, func(ctx context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("task ran while queue was paused")
	case <-time.After(100 * time.Millisecond):
	}

	q.Resume()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run after resume")
	}
}

func TestStopWaitsForWorkersToExit(t *testing.T) {
	q := New(3)
	q.Start(context.Background())
	q.Stop()

	// Pushing after Stop should not panic; workers are already gone and
	// nothing will ever drain it, which is an acceptable post-Stop no-op.
	require.NotPanics(t, func() {
		q.Push(Low, func(ctx context.Context) {})
	})
}

func TestPendingReportsQueueDepths(t *testing.T) {
	q := New(1)
	q.Push(High, func(ctx context.Context) {})
	q.Push(Low, func(ctx context.Context) {})
	q.Push(Low, func(ctx context.Context) {})

	high, low := q.Pending()
	require.Equal(t, 1, high)
	require.Equal(t, 2, low)
}
