package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrDeadlineExceeded is reported when a job runs out of time before it succeeds.
	ErrDeadlineExceeded = errors.New("job deadline exceeded")
	// ErrUnknownKind is reported for jobs no handler was registered for.
	ErrUnknownKind = errors.New("no handler registered for job kind")
)

const (
	idleWait    = 100 * time.Millisecond
	hookTimeout = 5 * time.Second
)

// Handler performs one attempt of a job.
type Handler func(ctx context.Context, job *Job) error

// AbandonHandler is called once when a job will not be retried again.
type AbandonHandler func(ctx context.Context, job *Job, err error)

// RetryHandler is called after a failed attempt that will be retried at next.
type RetryHandler func(ctx context.Context, job *Job, err error, next time.Time)

// WorkerConfig tunes retry and polling behaviour.
type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
	Deadline    time.Duration
	Backoff     time.Duration
	PollTimeout time.Duration
}

// Worker consumes jobs from a RedisQueue.
type Worker struct {
	queue     *RedisQueue
	cfg       WorkerConfig
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.RWMutex
	handlers  map[string]Handler
	onAbandon AbandonHandler
	onRetry   RetryHandler
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a worker for q.
func NewWorker(q *RedisQueue, cfg WorkerConfig, logger *zap.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	w := &Worker{
		queue:    q,
		cfg:      cfg,
		logger:   logger.With(zap.String("queue", q.Connection()+":"+q.Name())),
		now:      time.Now,
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle registers h for jobs of kind.
func (w *Worker) Handle(kind string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// OnAbandon registers the abandonment hook.
func (w *Worker) OnAbandon(h AbandonHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAbandon = h
}

// OnRetry registers the retry hook.
func (w *Worker) OnRetry(h RetryHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRetry = h
}

// Run processes jobs with cfg.Concurrency goroutines until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger := w.logger.With(zap.Int("worker", id))
	logger.Info("queue worker started")
	defer logger.Info("queue worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("queue poll failed", zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if !processed && w.cfg.PollTimeout <= 0 {
			sleep(ctx, idleWait)
		}
	}
}

// ProcessNext promotes due retries, pops one job and runs a single attempt
// of it. It reports whether a job was taken.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if _, err := w.queue.PromoteDue(ctx, w.now()); err != nil {
		return false, err
	}
	job, err := w.queue.Pop(ctx, w.cfg.PollTimeout)
	if err != nil || job == nil {
		return false, err
	}
	w.process(ctx, job)
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *Job) {
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = w.cfg.MaxAttempts
	}
	now := w.now()
	if job.Deadline == nil {
		deadline := now.Add(w.cfg.Deadline)
		job.Deadline = &deadline
	}
	logger := w.logger.With(zap.String("job_id", job.ID), zap.String("kind", job.Kind))

	if !now.Before(*job.Deadline) {
		cause := ErrDeadlineExceeded
		if job.LastError != "" {
			cause = fmt.Errorf("%w: %s", ErrDeadlineExceeded, job.LastError)
		}
		w.abandon(ctx, job, cause)
		return
	}

	w.mu.RLock()
	handler, ok := w.handlers[job.Kind]
	w.mu.RUnlock()
	if !ok {
		w.abandon(ctx, job, fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind))
		return
	}

	job.Attempts++
	err := w.invoke(ctx, handler, job)
	if err == nil {
		logger.Debug("job completed", zap.Int("attempt", job.Attempts))
		return
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	// An attempt cut short by shutdown does not count against the budget.
	if ctx.Err() != nil {
		job.Attempts--
		if rerr := w.queue.Enqueue(hookCtx, job); rerr != nil {
			logger.Error("failed to requeue interrupted job", zap.Error(rerr))
			return
		}
		logger.Info("job interrupted by shutdown; requeued", zap.Int("attempts", job.Attempts))
		return
	}
	job.LastError = err.Error()

	next := w.now().Add(w.cfg.Backoff * time.Duration(job.Attempts))
	if job.Attempts >= job.MaxAttempts || !next.Before(*job.Deadline) {
		w.abandon(hookCtx, job, err)
		return
	}

	if serr := w.queue.Schedule(hookCtx, job, next); serr != nil {
		logger.Error("failed to schedule retry", zap.Error(serr))
		w.abandon(hookCtx, job, errors.Join(err, serr))
		return
	}
	logger.Warn("job attempt failed; retry scheduled",
		zap.Int("attempt", job.Attempts), zap.Time("retry_at", next), zap.Error(err))

	w.mu.RLock()
	onRetry := w.onRetry
	w.mu.RUnlock()
	if onRetry != nil {
		onRetry(hookCtx, job, err, next)
	}
}

// invoke runs h bounded by the job deadline. A panic counts as a failed attempt.
func (w *Worker) invoke(ctx context.Context, h Handler, job *Job) (err error) {
	attemptCtx, cancel := context.WithDeadline(ctx, *job.Deadline)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(attemptCtx, job)
}

// abandon runs the hook detached from the cancellation of ctx.
func (w *Worker) abandon(ctx context.Context, job *Job, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()
	w.logger.Debug("abandoning job",
		zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Int("attempts", job.Attempts), zap.Error(err))

	w.mu.RLock()
	onAbandon := w.onAbandon
	w.mu.RUnlock()
	if onAbandon != nil {
		onAbandon(ctx, job, err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
