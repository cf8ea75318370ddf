package crm

import (
	"context"
	"sync"
	"time"
)

// Queue serializes outbound system-of-record calls through one worker that
// enforces a minimum interval between requests, keeping the engine under the
// CRM's per-second quota regardless of request concurrency.
type Queue struct {
	jobs     chan queuedJob
	interval time.Duration

	mu    sync.Mutex
	depth int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type queuedJob struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// NewQueue builds a queue throttled to maxPerSecond outbound calls and starts
// its worker.
func NewQueue(maxPerSecond int) *Queue {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	q := &Queue{
		jobs:     make(chan queuedJob, 256),
		interval: time.Second / time.Duration(maxPerSecond),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go q.worker()
	return q
}

// Submit enqueues fn and returns a channel that receives its outcome exactly
// once. The call runs on the worker goroutine; if ctx is cancelled before the
// job is dequeued, the job is skipped and ctx.Err() is delivered instead.
func (q *Queue) Submit(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	result := make(chan error, 1)

	q.mu.Lock()
	q.depth++
	q.mu.Unlock()

	select {
	case q.jobs <- queuedJob{ctx: ctx, fn: fn, result: result}:
	case <-q.stop:
		q.finish()
		result <- context.Canceled
	}
	return result
}

// Do enqueues fn and blocks until it completes.
func (q *Queue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case err := <-q.Submit(ctx, fn):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth reports how many jobs are waiting or running.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Interval reports the enforced minimum gap between outbound calls.
func (q *Queue) Interval() time.Duration {
	return q.interval
}

// Close stops the worker after the current job. Pending Submit calls receive
// context.Canceled.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	<-q.done
}

func (q *Queue) finish() {
	q.mu.Lock()
	q.depth--
	q.mu.Unlock()
}

func (q *Queue) worker() {
	defer close(q.done)
	var last time.Time

	for {
		select {
		case <-q.stop:
			return
		case job := <-q.jobs:
			if wait := q.interval - time.Since(last); wait > 0 && !last.IsZero() {
				select {
				case <-time.After(wait):
				case <-q.stop:
					job.result <- context.Canceled
					q.finish()
					return
				}
			}

			if err := job.ctx.Err(); err != nil {
				job.result <- err
				q.finish()
				continue
			}

			last = time.Now()
			job.result <- job.fn(job.ctx)
			q.finish()
		}
	}
}
