package queue

import (
	"context"
	"log"
	"sync"

	"github.com/sourcegraph/conc"

	"clearstream/internal/metrics"
)

// Handler executes one job. Payloads are whatever the pusher enqueued;
// handlers assert the concrete type themselves.
type Handler func(ctx context.Context, payload any) error

type job struct {
	name    string
	payload any
}

// Queue is the in-process background job queue: named handlers, bounded
// worker pool, at-least-once execution, no ordering guarantee. Push is
// fire-and-forget; callers never read job state back.
type Queue struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	jobs chan job

	workers int
	wg      conc.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a queue with the given worker count and backlog depth.
func New(workers, depth int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 64
	}
	return &Queue{
		handlers: make(map[string]Handler),
		jobs:     make(chan job, depth),
		workers:  workers,
	}
}

// Register makes a handler available under name. Jobs pushed for an
// unregistered name are dropped with a warning.
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.handlers[name]; exists {
		log.Printf("[queue] replacing handler for %q", name)
	}
	q.handlers[name] = h
}

// Push enqueues a work item. It blocks when the backlog is full, which is
// the only backpressure this queue applies.
func (q *Queue) Push(name string, payload any) {
	select {
	case q.jobs <- job{name: name, payload: payload}:
	case <-q.done():
		log.Printf("[queue] dropping job %q: queue stopped", name)
	}
}

func (q *Queue) done() <-chan struct{} {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.ctx == nil {
		return nil // nil channel: Push blocks on the jobs channel only
	}
	return q.ctx.Done()
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.mu.Lock()
		q.ctx, q.cancel = context.WithCancel(ctx)
		q.mu.Unlock()

		for i := 0; i < q.workers; i++ {
			q.wg.Go(q.worker)
		}
		log.Printf("[queue] started %d worker(s)", q.workers)
	})
}

// Stop drains nothing: it cancels the workers' context and waits for
// in-flight jobs to finish. Queued-but-unstarted jobs are dropped.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.RLock()
		cancel := q.cancel
		q.mu.RUnlock()
		if cancel != nil {
			cancel()
		}
		q.wg.Wait()
		log.Printf("[queue] stopped")
	})
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.jobs:
			q.run(j)
		}
	}
}

func (q *Queue) run(j job) {
	q.mu.RLock()
	h, ok := q.handlers[j.name]
	q.mu.RUnlock()

	if !ok {
		log.Printf("[queue] no handler registered for job %q, dropping", j.name)
		metrics.QueueJobsTotal.WithLabelValues(j.name, "dropped").Inc()
		return
	}

	// A panicking handler must not take the worker down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[queue] job %q panicked: %v", j.name, r)
			metrics.QueueJobsTotal.WithLabelValues(j.name, "panic").Inc()
		}
	}()

	if err := h(q.ctx, j.payload); err != nil {
		log.Printf("[queue] job %q failed: %v", j.name, err)
		metrics.QueueJobsTotal.WithLabelValues(j.name, "error").Inc()
		return
	}
	metrics.QueueJobsTotal.WithLabelValues(j.name, "ok").Inc()
}
