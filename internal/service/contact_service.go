package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/observability"
	"github.com/spec-kit/portfolio-contact/internal/ratelimit"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	"github.com/spec-kit/portfolio-contact/internal/validation"
)

// OutcomeKind enumerates the terminal results of a submission attempt.
type OutcomeKind string

const (
	OutcomeSucceeded     OutcomeKind = "succeeded"
	OutcomeRateLimited   OutcomeKind = "rate_limited"
	OutcomeInvalid       OutcomeKind = "invalid"
	OutcomeStorageFailed OutcomeKind = "storage_failed"
)

// SubmitOutcome is the result of ContactService.Submit. Only the fields
// relevant to Kind are populated.
type SubmitOutcome struct {
	Kind              OutcomeKind
	Submission        *domain.Submission
	RetryAfterSeconds int
	FieldErrors       validation.FieldErrors
}

// RateLimiter admits or rejects attempts for a key.
type RateLimiter interface {
	Admit(ctx context.Context, key string) ratelimit.Decision
}

// SubmissionValidator checks and normalizes raw payloads.
type SubmissionValidator interface {
	Validate(ctx context.Context, in validation.ContactInput) (validation.NormalizedSubmission, validation.FieldErrors)
}

// ContactService is the entry point for contact form submissions.
type ContactService struct {
	limiter     RateLimiter
	validator   SubmissionValidator
	submissions repository.SubmissionRepository
	dispatcher  events.Dispatcher
	namespace   string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// ContactDependencies bundles collaborators for the contact service.
type ContactDependencies struct {
	Limiter        RateLimiter
	Validator      SubmissionValidator
	SubmissionRepo repository.SubmissionRepository
	Dispatcher     events.Dispatcher
	Namespace      string
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewContactService constructs the service.
func NewContactService(deps ContactDependencies) *ContactService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{
		limiter:     deps.Limiter,
		validator:   deps.Validator,
		submissions: deps.SubmissionRepo,
		dispatcher:  deps.Dispatcher,
		namespace:   deps.Namespace,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// Submit throttles, validates and stores one contact form payload, then
// announces it so notifications can be queued. Notification problems never
// change the outcome once the submission is stored.
func (s *ContactService) Submit(ctx context.Context, input validation.ContactInput, clientAddr string) SubmitOutcome {
	decision := s.limiter.Admit(ctx, ratelimit.Key(s.namespace, clientAddr))
	if !decision.Allowed {
		s.metrics.Inc(observability.CounterContactRateLimited)
		return SubmitOutcome{Kind: OutcomeRateLimited, RetryAfterSeconds: decision.RetryAfterSeconds}
	}

	normalized, fieldErrs := s.validator.Validate(ctx, input)
	if len(fieldErrs) > 0 {
		s.metrics.Inc(observability.CounterContactInvalid)
		s.logger.Debug("contact submission rejected", zap.Strings("fields", fieldErrs.Fields()))
		return SubmitOutcome{Kind: OutcomeInvalid, FieldErrors: fieldErrs}
	}

	submission := &domain.Submission{
		Name:        normalized.Name,
		Email:       normalized.Email,
		ProjectType: normalized.ProjectType,
		Message:     normalized.Message,
		IPAddress:   clientAddr,
		Status:      domain.SubmissionStatusNew,
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		s.metrics.Inc(observability.CounterContactStorageFailed)
		s.logger.Error("failed to store contact submission",
			zap.Error(err),
			zap.String("email", submission.Email),
			zap.String("name", submission.Name),
			zap.String("project_type", submission.ProjectTypeLabel()),
			zap.Int("message_length", len([]rune(submission.Message))),
			zap.String("ip", clientAddr))
		return SubmitOutcome{Kind: OutcomeStorageFailed}
	}

	s.metrics.Inc(observability.CounterContactAccepted)
	s.logger.Info("contact submission stored",
		zap.String("submission_id", submission.ID),
		zap.String("project_type", submission.ProjectTypeLabel()))

	s.publishEvent(ctx, events.Event{
		Type:         events.EventSubmissionReceived,
		SubmissionID: submission.ID,
		Payload:      events.SubmissionReceivedPayload{Submission: *submission},
	})

	return SubmitOutcome{Kind: OutcomeSucceeded, Submission: submission}
}

func (s *ContactService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("submission_id", event.SubmissionID),
			zap.Error(err))
	}
}
