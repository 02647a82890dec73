package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/observability"
	"github.com/spec-kit/portfolio-contact/internal/ratelimit"
	"github.com/spec-kit/portfolio-contact/internal/testutil"
	"github.com/spec-kit/portfolio-contact/internal/validation"
)

const testClientAddr = "203.0.113.7"

type contactFixture struct {
	svc      *ContactService
	limiter  RateLimiter
	repo     *mockSubmissionRepo
	jobs     *mockJobRepo
	queue    *mockQueue
	metrics  *observability.Metrics
	observed *observer.ObservedLogs
}

func newContactFixture(t *testing.T, limiter RateLimiter) *contactFixture {
	t.Helper()

	core, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	f := &contactFixture{
		limiter:  limiter,
		repo:     &mockSubmissionRepo{},
		jobs:     &mockJobRepo{},
		queue:    &mockQueue{},
		metrics:  metrics,
		observed: observed,
	}

	notifications := NewNotificationService(NotificationConfig{
		AdminAddress: "owner@example.com",
		MaxAttempts:  3,
	}, NotificationDependencies{
		Dispatcher: dispatcher,
		JobRepo:    f.jobs,
		Queue:      f.queue,
		Metrics:    metrics,
		Logger:     logger,
	})
	notifications.RegisterHandlers()

	f.svc = NewContactService(ContactDependencies{
		Limiter:        limiter,
		Validator:      validation.New(),
		SubmissionRepo: f.repo,
		Dispatcher:     dispatcher,
		Namespace:      "contact-form",
		Metrics:        metrics,
		Logger:         logger,
	})
	return f
}

func validInput() validation.ContactInput {
	return validation.ContactInput{
		Name:        "Jane Doe",
		Email:       "Jane@Example.com",
		ProjectType: "web-application",
		Message:     "I need a new web app built within 10 weeks.",
	}
}

func TestContactService_SubmitStoresAndQueuesNotifications(t *testing.T) {
	f := newContactFixture(t, &mockLimiter{})

	out := f.svc.Submit(context.Background(), validInput(), testClientAddr)

	require.Equal(t, OutcomeSucceeded, out.Kind)
	require.NotNil(t, out.Submission)
	assert.NotEmpty(t, out.Submission.ID)
	assert.Equal(t, "jane@example.com", out.Submission.Email)
	assert.Equal(t, "Jane Doe", out.Submission.Name)
	assert.Equal(t, domain.SubmissionStatusNew, out.Submission.Status)
	assert.Equal(t, testClientAddr, out.Submission.IPAddress)
	require.NotNil(t, out.Submission.ProjectType)
	assert.Equal(t, domain.ProjectTypeWebApplication, *out.Submission.ProjectType)

	require.Len(t, f.repo.created, 1)
	require.Len(t, f.queue.enqueued, 2)

	targets := map[string]string{}
	for _, job := range f.queue.enqueued {
		var payload notificationPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, out.Submission.ID, payload.Submission.ID)
		assert.Equal(t, 3, job.MaxAttempts)
		targets[job.Kind] = payload.Target
	}
	assert.Equal(t, map[string]string{
		string(domain.NotificationKindAdminNotice):     "owner@example.com",
		string(domain.NotificationKindSenderAutoReply): "jane@example.com",
	}, targets)

	require.Len(t, f.jobs.created, 2)
	for _, rec := range f.jobs.created {
		assert.Equal(t, out.Submission.ID, rec.SubmissionID)
		assert.Equal(t, domain.NotificationJobQueued, rec.State)
	}

	assert.EqualValues(t, 1, f.metrics.Counter(observability.CounterContactAccepted))
	assert.EqualValues(t, 2, f.metrics.Counter(observability.CounterNotificationEnqueued))
}

func TestContactService_UsesNamespacedClientKey(t *testing.T) {
	limiter := &mockLimiter{}
	f := newContactFixture(t, limiter)

	f.svc.Submit(context.Background(), validInput(), testClientAddr)

	assert.Equal(t, []string{"contact-form:203.0.113.7"}, limiter.keys)
}

func TestContactService_RateLimitedAfterThreeAttempts(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	limiter := ratelimit.NewLimiter(client, 3, 5*time.Minute, zap.NewNop())
	f := newContactFixture(t, limiter)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out := f.svc.Submit(ctx, validInput(), testClientAddr)
		require.Equal(t, OutcomeSucceeded, out.Kind, "attempt %d", i+1)
	}

	out := f.svc.Submit(ctx, validInput(), testClientAddr)
	assert.Equal(t, OutcomeRateLimited, out.Kind)
	assert.Greater(t, out.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, out.RetryAfterSeconds, 300)
	assert.Nil(t, out.Submission)
	assert.Len(t, f.repo.created, 3)
	assert.EqualValues(t, 1, f.metrics.Counter(observability.CounterContactRateLimited))

	other := f.svc.Submit(ctx, validInput(), "198.51.100.2")
	assert.Equal(t, OutcomeSucceeded, other.Kind)
}

func TestContactService_RateLimitedSkipsValidation(t *testing.T) {
	limiter := &mockLimiter{admitFunc: func(context.Context, string) ratelimit.Decision {
		return ratelimit.Decision{Allowed: false, Attempts: 4, RetryAfterSeconds: 120}
	}}
	validator := &mockValidator{}
	repo := &mockSubmissionRepo{}
	svc := NewContactService(ContactDependencies{
		Limiter:        limiter,
		Validator:      validator,
		SubmissionRepo: repo,
		Namespace:      "contact-form",
	})

	out := svc.Submit(context.Background(), validation.ContactInput{}, testClientAddr)

	assert.Equal(t, OutcomeRateLimited, out.Kind)
	assert.Equal(t, 120, out.RetryAfterSeconds)
	assert.Zero(t, validator.calls)
	assert.Empty(t, repo.created)
}

func TestContactService_InvalidSubmissionIsNotStored(t *testing.T) {
	f := newContactFixture(t, &mockLimiter{})

	out := f.svc.Submit(context.Background(), validation.ContactInput{
		Name:    "J",
		Email:   "not-an-email",
		Message: "Buy now! Limited time offer!!",
	}, testClientAddr)

	require.Equal(t, OutcomeInvalid, out.Kind)
	assert.Equal(t, []string{"email", "message", "name"}, out.FieldErrors.Fields())
	assert.Contains(t, out.FieldErrors[validation.FieldMessage], "Your message appears to contain spam content.")
	assert.Empty(t, f.repo.created)
	assert.Empty(t, f.queue.enqueued)
	assert.EqualValues(t, 1, f.metrics.Counter(observability.CounterContactInvalid))
}

func TestContactService_StorageFailureIsLoggedWithoutNotifications(t *testing.T) {
	f := newContactFixture(t, &mockLimiter{})
	f.repo.createFunc = func(context.Context, *domain.Submission) error {
		return errors.New("connection refused")
	}

	out := f.svc.Submit(context.Background(), validInput(), testClientAddr)

	assert.Equal(t, OutcomeStorageFailed, out.Kind)
	assert.Nil(t, out.Submission)
	assert.Empty(t, f.queue.enqueued)
	assert.Empty(t, f.jobs.created)
	assert.EqualValues(t, 1, f.metrics.Counter(observability.CounterContactStorageFailed))

	logs := f.observed.FilterMessage("failed to store contact submission").All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	fields := logs[0].ContextMap()
	assert.Equal(t, "jane@example.com", fields["email"])
	assert.Equal(t, "Web Application", fields["project_type"])
	assert.Equal(t, testClientAddr, fields["ip"])
	assert.Equal(t, "connection refused", fields["error"])
}

func TestContactService_EnqueueFailureStillSucceeds(t *testing.T) {
	f := newContactFixture(t, &mockLimiter{})
	f.queue.err = errors.New("redis down")

	out := f.svc.Submit(context.Background(), validInput(), testClientAddr)

	assert.Equal(t, OutcomeSucceeded, out.Kind)
	assert.Len(t, f.repo.created, 1)
	assert.EqualValues(t, 2, f.metrics.Counter(observability.CounterNotificationEnqueueErr))
	assert.Equal(t, 2, f.observed.FilterMessage("failed to queue contact notification").Len())
}

func TestContactService_LimiterUnavailableAdmits(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	limiter := ratelimit.NewLimiter(client, 3, 5*time.Minute, zap.NewNop())
	mr.Close()

	f := newContactFixture(t, limiter)
	out := f.svc.Submit(context.Background(), validInput(), testClientAddr)

	assert.Equal(t, OutcomeSucceeded, out.Kind)
}
