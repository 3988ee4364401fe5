package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// WorkerConfig tunes the retry and concurrency behavior of a worker.
type WorkerConfig struct {
	// Concurrency is the number of consuming goroutines (default 4).
	Concurrency int
	// MaxAttempts is the total number of processing attempts before an asset
	// is marked failed (default 3).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts (default 5s).
	BaseDelay time.Duration
	// MaxDelay caps the backoff (default 5m).
	MaxDelay time.Duration
	// AttemptTimeout is the soft per-attempt deadline; a timed-out attempt
	// counts as a transient failure (default 2m).
	AttemptTimeout time.Duration
}

func (c *WorkerConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 5 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Minute
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 2 * time.Minute
	}
}

// Worker pulls processing jobs from the queue and drives the processor,
// scheduling delayed retries with exponential backoff and failing assets when
// attempts are exhausted.
type Worker struct {
	queue     simplemedia.JobQueue
	processor *Processor
	logger    *slog.Logger
	config    WorkerConfig
}

// NewWorker creates a worker over the given queue and processor.
func NewWorker(queue simplemedia.JobQueue, proc *Processor, logger *slog.Logger, cfg WorkerConfig) *Worker {
	cfg.applyDefaults()
	return &Worker{
		queue:     queue,
		processor: proc,
		logger:    logger,
		config:    cfg,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.queue.Consume(ctx, w.Handle); err != nil && ctx.Err() == nil {
				w.logger.Error("consumer stopped", "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}

// Handle runs one delivery. It always resolves the job (ack) unless the
// failure is infrastructural; retries become new delayed jobs so the backoff
// schedule survives the original delivery.
func (w *Worker) Handle(ctx context.Context, job simplemedia.ProcessingJob) error {
	attemptCtx, cancel := context.WithTimeout(ctx, w.config.AttemptTimeout)
	err := w.processor.Process(attemptCtx, job)
	cancel()

	if err == nil {
		return nil
	}

	attempt := job.Attempt + 1
	if simplemedia.IsPermanent(err) || attempt >= w.config.MaxAttempts {
		w.logger.Warn("processing failed terminally",
			"media_id", job.MediaID,
			"attempt", attempt,
			"error", err)
		if failErr := w.processor.Fail(ctx, job.MediaID); failErr != nil {
			return failErr
		}
		return nil
	}

	delay := w.backoff(job.Attempt)
	w.logger.Info("scheduling retry",
		"media_id", job.MediaID,
		"attempt", attempt,
		"delay", delay,
		"error", err)

	retry := simplemedia.ProcessingJob{
		MediaID:   job.MediaID,
		Category:  job.Category,
		Attempt:   attempt,
		NotBefore: time.Now().Add(delay),
	}
	if enqErr := w.queue.Enqueue(ctx, retry); enqErr != nil {
		// Could not schedule the retry; let the queue redeliver this job.
		return enqErr
	}
	return nil
}

// backoff doubles the base delay per completed attempt, capped at MaxDelay.
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.config.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= w.config.MaxDelay {
			return w.config.MaxDelay
		}
	}
	return delay
}
