package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsRegisteredHandler(t *testing.T) {
	q := New(2, 16)
	t.Cleanup(q.Stop)

	done := make(chan any, 1)
	q.Register("echo", func(ctx context.Context, payload any) error {
		done <- payload
		return nil
	})

	q.Start(context.Background())
	q.Push("echo", "hello")

	select {
	case got := <-done:
		assert.Equal(t, "hello", got)
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestQueueUnknownJobDropped(t *testing.T) {
	q := New(1, 16)
	t.Cleanup(q.Stop)

	var ran atomic.Bool
	q.Register("known", func(ctx context.Context, payload any) error {
		ran.Store(true)
		return nil
	})

	q.Start(context.Background())
	q.Push("unknown", nil)
	q.Push("known", nil)

	require.Eventually(t, ran.Load, 5*time.Second, 10*time.Millisecond,
		"a dropped job must not block the worker")
}

func TestQueuePanicDoesNotKillWorker(t *testing.T) {
	q := New(1, 16)
	t.Cleanup(q.Stop)

	var ran atomic.Bool
	q.Register("boom", func(ctx context.Context, payload any) error {
		panic("handler bug")
	})
	q.Register("after", func(ctx context.Context, payload any) error {
		ran.Store(true)
		return nil
	})

	q.Start(context.Background())
	q.Push("boom", nil)
	q.Push("after", nil)

	require.Eventually(t, ran.Load, 5*time.Second, 10*time.Millisecond,
		"worker should survive a panicking handler")
}

func TestQueueHandlerErrorsAreIsolated(t *testing.T) {
	q := New(1, 16)
	t.Cleanup(q.Stop)

	var count atomic.Int32
	q.Register("flaky", func(ctx context.Context, payload any) error {
		if count.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	q.Start(context.Background())
	q.Push("flaky", nil)
	q.Push("flaky", nil)

	require.Eventually(t, func() bool { return count.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestQueueConcurrentWorkers(t *testing.T) {
	q := New(4, 64)
	t.Cleanup(q.Stop)

	const jobs = 20
	var wg sync.WaitGroup
	wg.Add(jobs)
	q.Register("count", func(ctx context.Context, payload any) error {
		wg.Done()
		return nil
	})

	q.Start(context.Background())
	for i := 0; i < jobs; i++ {
		q.Push("count", i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not all jobs completed")
	}
}

func TestQueueStopWaitsForInFlightJob(t *testing.T) {
	q := New(1, 16)

	started := make(chan struct{})
	var finished atomic.Bool
	q.Register("slow", func(ctx context.Context, payload any) error {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	q.Start(context.Background())
	q.Push("slow", nil)
	<-started

	q.Stop()
	assert.True(t, finished.Load(), "Stop must wait for the in-flight job")
}

func TestQueuePushAfterStopDropped(t *testing.T) {
	q := New(1, 1)
	q.Register("noop", func(ctx context.Context, payload any) error { return nil })
	q.Start(context.Background())
	q.Stop()

	done := make(chan struct{})
	go func() {
		// Must not block forever once the queue has stopped.
		for i := 0; i < 10; i++ {
			q.Push("noop", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Push blocked after Stop")
	}
}
