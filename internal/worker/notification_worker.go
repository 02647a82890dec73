package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-contact/internal/config"
	"github.com/spec-kit/portfolio-contact/internal/queue"
	"github.com/spec-kit/portfolio-contact/internal/service"
)

// NewNotificationWorker binds the notification service to a queue worker.
func NewNotificationWorker(notificationService *service.NotificationService, q *queue.RedisQueue, cfg config.QueueConfig, logger *zap.Logger, opts ...queue.WorkerOption) *queue.Worker {
	w := queue.NewWorker(q, queue.WorkerConfig{
		Concurrency: cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		Deadline:    cfg.Deadline,
		Backoff:     cfg.RetryBackoff,
		PollTimeout: cfg.PollTimeout,
	}, logger, opts...)

	for _, kind := range service.JobKinds() {
		w.Handle(kind, notificationService.HandleJob)
	}
	w.OnRetry(notificationService.HandleRetry)
	w.OnAbandon(notificationService.HandleAbandoned)
	return w
}

// StartNotificationWorker registers notification handlers and consumes the
// mail queue until ctx is cancelled. The returned func blocks until every
// worker goroutine has stopped.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, q *queue.RedisQueue, cfg config.QueueConfig, logger *zap.Logger) (wait func()) {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()

	w := NewNotificationWorker(notificationService, q, cfg, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	return wg.Wait
}
