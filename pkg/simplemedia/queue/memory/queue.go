package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Queue is an in-process implementation of the simplemedia.JobQueue interface.
// Delivery is at-least-once: a handler error returns the job to the queue
// after a short redelivery delay. NotBefore is honored with timers.
type Queue struct {
	mu     sync.Mutex
	jobs   chan simplemedia.ProcessingJob
	timers map[*time.Timer]struct{}
	quit   chan struct{}
	closed bool

	// RedeliverDelay is applied when a handler returns an error.
	RedeliverDelay time.Duration
}

// New creates a new in-memory queue
func New() *Queue {
	return &Queue{
		jobs:           make(chan simplemedia.ProcessingJob, 1024),
		timers:         make(map[*time.Timer]struct{}),
		quit:           make(chan struct{}),
		RedeliverDelay: 50 * time.Millisecond,
	}
}

func (q *Queue) Enqueue(ctx context.Context, job simplemedia.ProcessingJob) error {
	delay := time.Until(job.NotBefore)
	if delay <= 0 {
		return q.push(ctx, job)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return &simplemedia.QueueError{Op: "enqueue", Err: context.Canceled}
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		_ = q.push(context.Background(), job)
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
	return nil
}

func (q *Queue) push(ctx context.Context, job simplemedia.ProcessingJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-q.quit:
		return &simplemedia.QueueError{Op: "enqueue", Err: context.Canceled}
	case <-ctx.Done():
		return &simplemedia.QueueError{Op: "enqueue", Err: ctx.Err()}
	}
}

func (q *Queue) Consume(ctx context.Context, handler simplemedia.JobHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.quit:
			return nil
		case job := <-q.jobs:
			if err := handler(ctx, job); err != nil {
				redelivery := job
				redelivery.NotBefore = time.Now().Add(q.RedeliverDelay)
				_ = q.Enqueue(ctx, redelivery)
			}
		}
	}
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	close(q.quit)
	return nil
}

// Len reports the number of immediately deliverable jobs. Test hook.
func (q *Queue) Len() int {
	return len(q.jobs)
}
