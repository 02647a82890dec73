package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/mail"
	"github.com/spec-kit/portfolio-contact/internal/queue"
	"github.com/spec-kit/portfolio-contact/internal/ratelimit"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	"github.com/spec-kit/portfolio-contact/internal/validation"
)

// ---------------------------------------------------------------------------
// limiter / validator
// ---------------------------------------------------------------------------

type mockLimiter struct {
	admitFunc func(ctx context.Context, key string) ratelimit.Decision
	keys      []string
}

func (m *mockLimiter) Admit(ctx context.Context, key string) ratelimit.Decision {
	m.keys = append(m.keys, key)
	if m.admitFunc != nil {
		return m.admitFunc(ctx, key)
	}
	return ratelimit.Decision{Allowed: true, Attempts: 1}
}

type mockValidator struct {
	calls int
}

func (m *mockValidator) Validate(context.Context, validation.ContactInput) (validation.NormalizedSubmission, validation.FieldErrors) {
	m.calls++
	return validation.NormalizedSubmission{}, validation.FieldErrors{"name": {"unexpected call"}}
}

// ---------------------------------------------------------------------------
// repositories
// ---------------------------------------------------------------------------

type mockSubmissionRepo struct {
	mu                 sync.Mutex
	created            []domain.Submission
	createFunc         func(ctx context.Context, s *domain.Submission) error
	getByIDFunc        func(ctx context.Context, id string) (*domain.Submission, error)
	markAsReadFunc     func(ctx context.Context, id string) (bool, error)
	markAsRepliedFunc  func(ctx context.Context, id string) (bool, error)
	updateStatusFunc   func(ctx context.Context, id string, status domain.SubmissionStatus) (bool, error)
	listFunc           func(ctx context.Context, filter repository.SubmissionFilter) (*repository.SubmissionPage, error)
	recentFunc         func(ctx context.Context, limit int) ([]domain.Submission, error)
	countsByStatusFunc func(ctx context.Context) (repository.StatusCounts, error)
	countsByPeriodFunc func(ctx context.Context, now time.Time, loc *time.Location) (repository.PeriodCounts, error)
}

func (m *mockSubmissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	s.UpdatedAt = s.CreatedAt
	m.created = append(m.created, *s)
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSubmissionRepo) MarkAsRead(ctx context.Context, id string) (bool, error) {
	if m.markAsReadFunc != nil {
		return m.markAsReadFunc(ctx, id)
	}
	return true, nil
}

func (m *mockSubmissionRepo) MarkAsReplied(ctx context.Context, id string) (bool, error) {
	if m.markAsRepliedFunc != nil {
		return m.markAsRepliedFunc(ctx, id)
	}
	return true, nil
}

func (m *mockSubmissionRepo) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus) (bool, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return true, nil
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) (*repository.SubmissionPage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return &repository.SubmissionPage{}, nil
}

func (m *mockSubmissionRepo) Recent(ctx context.Context, limit int) ([]domain.Submission, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockSubmissionRepo) CountsByStatus(ctx context.Context) (repository.StatusCounts, error) {
	if m.countsByStatusFunc != nil {
		return m.countsByStatusFunc(ctx)
	}
	return repository.StatusCounts{}, nil
}

func (m *mockSubmissionRepo) CountsByPeriod(ctx context.Context, now time.Time, loc *time.Location) (repository.PeriodCounts, error) {
	if m.countsByPeriodFunc != nil {
		return m.countsByPeriodFunc(ctx, now, loc)
	}
	return repository.PeriodCounts{}, nil
}

type jobUpdate struct {
	op       string
	id       string
	attempts int
	lastErr  string
}

type mockJobRepo struct {
	mu        sync.Mutex
	created   []domain.NotificationJob
	updates   []jobUpdate
	createErr error
	listFunc  func(ctx context.Context, submissionID string) ([]domain.NotificationJob, error)
}

func (m *mockJobRepo) Create(_ context.Context, job *domain.NotificationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, *job)
	return nil
}

func (m *mockJobRepo) RecordAttempt(_ context.Context, id string, attempts int, _ *time.Time, lastError string) error {
	return m.record(jobUpdate{op: "attempt", id: id, attempts: attempts, lastErr: lastError})
}

func (m *mockJobRepo) MarkDelivered(_ context.Context, id string, attempts int) error {
	return m.record(jobUpdate{op: "delivered", id: id, attempts: attempts})
}

func (m *mockJobRepo) MarkAbandoned(_ context.Context, id string, attempts int, lastError string) error {
	return m.record(jobUpdate{op: "abandoned", id: id, attempts: attempts, lastErr: lastError})
}

func (m *mockJobRepo) ListBySubmission(ctx context.Context, submissionID string) ([]domain.NotificationJob, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, submissionID)
	}
	return []domain.NotificationJob{}, nil
}

func (m *mockJobRepo) record(u jobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, u)
	return nil
}

// ---------------------------------------------------------------------------
// queue / mail
// ---------------------------------------------------------------------------

type mockQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error
	ctxErr   error
}

func (m *mockQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockSender struct {
	mu       sync.Mutex
	sent     []*mail.Message
	sendFunc func(ctx context.Context, msg *mail.Message) error
}

func (m *mockSender) Send(ctx context.Context, msg *mail.Message) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}
