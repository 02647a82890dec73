package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/mail"
	"github.com/spec-kit/portfolio-contact/internal/observability"
	"github.com/spec-kit/portfolio-contact/internal/queue"
	"github.com/spec-kit/portfolio-contact/internal/repository"
)

const defaultEnqueueTimeout = 5 * time.Second

// JobQueue accepts jobs for asynchronous execution.
type JobQueue interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// MailComposer renders the two notification mails.
type MailComposer interface {
	AdminNotice(s *domain.Submission) (*mail.Message, error)
	AutoReply(s *domain.Submission) (*mail.Message, error)
}

// NotificationConfig carries dispatch settings.
type NotificationConfig struct {
	AdminAddress   string
	MaxAttempts    int
	EnqueueTimeout time.Duration
}

// notificationPayload is the queued job body. It snapshots the submission so
// delivery does not depend on reading it back.
type notificationPayload struct {
	Kind       domain.NotificationKind `json:"kind"`
	Target     string                  `json:"target"`
	Submission domain.Submission       `json:"submission"`
}

// NotificationService queues and delivers the owner notice and the
// submitter auto-reply for every stored submission.
type NotificationService struct {
	dispatcher events.Dispatcher
	jobs       repository.NotificationJobRepository
	queue      JobQueue
	composer   MailComposer
	sender     mail.Sender
	cfg        NotificationConfig
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	JobRepo    repository.NotificationJobRepository
	Queue      JobQueue
	Composer   MailComposer
	Sender     mail.Sender
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg NotificationConfig, deps NotificationDependencies) *NotificationService {
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		jobs:       deps.JobRepo,
		queue:      deps.Queue,
		composer:   deps.Composer,
		sender:     deps.Sender,
		cfg:        cfg,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSubmissionReceived, n.handleSubmissionReceived)
	n.dispatcher.Subscribe(events.EventSubmissionStatusChanged, n.handleSubmissionStatusChanged)
}

func (n *NotificationService) handleSubmissionReceived(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SubmissionReceivedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.Dispatch(ctx, &payload.Submission)
}

func (n *NotificationService) handleSubmissionStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("SubmissionStatusChanged", zap.String("submission_id", event.SubmissionID), zap.Any("payload", event.Payload))
	return nil
}

// Dispatch records and enqueues one job per notification kind. It detaches
// from the caller's cancellation so an aborted request cannot drop queued
// mail, and is bounded by the enqueue timeout.
func (n *NotificationService) Dispatch(ctx context.Context, submission *domain.Submission) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.EnqueueTimeout)
	defer cancel()

	targets := []struct {
		kind   domain.NotificationKind
		target string
	}{
		{domain.NotificationKindAdminNotice, n.cfg.AdminAddress},
		{domain.NotificationKindSenderAutoReply, submission.Email},
	}

	var errs []error
	for _, t := range targets {
		if err := n.enqueue(ctx, submission, t.kind, t.target); err != nil {
			n.metrics.Inc(observability.CounterNotificationEnqueueErr)
			n.logger.Error("failed to queue contact notification",
				zap.String("submission_id", submission.ID),
				zap.String("kind", string(t.kind)),
				zap.String("target", t.target),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		n.metrics.Inc(observability.CounterNotificationEnqueued)
	}
	return errors.Join(errs...)
}

func (n *NotificationService) enqueue(ctx context.Context, submission *domain.Submission, kind domain.NotificationKind, target string) error {
	job, err := queue.NewJob(string(kind), notificationPayload{
		Kind:       kind,
		Target:     target,
		Submission: *submission,
	}, n.cfg.MaxAttempts)
	if err != nil {
		return err
	}

	record := &domain.NotificationJob{
		ID:           job.ID,
		SubmissionID: submission.ID,
		Kind:         kind,
		Target:       target,
		MaxAttempts:  n.cfg.MaxAttempts,
		State:        domain.NotificationJobQueued,
	}
	recorded := true
	if err := n.jobs.Create(ctx, record); err != nil {
		recorded = false
		n.logger.Warn("failed to record notification job",
			zap.String("submission_id", submission.ID), zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := n.queue.Enqueue(ctx, job); err != nil {
		if recorded {
			if merr := n.jobs.MarkAbandoned(ctx, job.ID, 0, err.Error()); merr != nil {
				n.logger.Warn("failed to update notification ledger", zap.String("job_id", job.ID), zap.Error(merr))
			}
		}
		return err
	}
	return nil
}

// JobKinds lists the queue job kinds HandleJob understands.
func JobKinds() []string {
	return []string{
		string(domain.NotificationKindAdminNotice),
		string(domain.NotificationKindSenderAutoReply),
	}
}

// HandleJob composes and sends the mail for one attempt of job.
func (n *NotificationService) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload notificationPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}

	var (
		msg *mail.Message
		err error
	)
	switch payload.Kind {
	case domain.NotificationKindAdminNotice:
		msg, err = n.composer.AdminNotice(&payload.Submission)
	case domain.NotificationKindSenderAutoReply:
		msg, err = n.composer.AutoReply(&payload.Submission)
	default:
		return fmt.Errorf("unknown notification kind %q", payload.Kind)
	}
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}

	n.metrics.Inc(observability.CounterNotificationDelivered)
	n.logger.Info("contact notification delivered",
		zap.String("submission_id", payload.Submission.ID),
		zap.String("job_id", job.ID),
		zap.String("kind", string(payload.Kind)),
		zap.Int("attempt", job.Attempts))
	// The mail is out; record it even if the attempt context has just ended.
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.EnqueueTimeout)
	defer cancel()
	if err := n.jobs.MarkDelivered(ledgerCtx, job.ID, job.Attempts); err != nil {
		n.logger.Warn("failed to update notification ledger", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}

// HandleRetry records a failed attempt that will be retried.
func (n *NotificationService) HandleRetry(ctx context.Context, job *queue.Job, cause error, next time.Time) {
	n.metrics.Inc(observability.CounterNotificationRetried)
	if err := n.jobs.RecordAttempt(ctx, job.ID, job.Attempts, job.Deadline, cause.Error()); err != nil {
		n.logger.Warn("failed to update notification ledger", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// HandleAbandoned logs a job that will not be retried again.
func (n *NotificationService) HandleAbandoned(ctx context.Context, job *queue.Job, cause error) {
	var payload notificationPayload
	_ = job.Decode(&payload)

	n.metrics.Inc(observability.CounterNotificationAbandoned)
	n.logger.Error("contact notification abandoned",
		zap.String("submission_id", payload.Submission.ID),
		zap.String("target", payload.Target),
		zap.String("kind", job.Kind),
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause))

	if err := n.jobs.MarkAbandoned(ctx, job.ID, job.Attempts, cause.Error()); err != nil {
		n.logger.Warn("failed to update notification ledger", zap.String("job_id", job.ID), zap.Error(err))
	}
}
