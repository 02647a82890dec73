package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

const maxRecentLimit = 50

// SubmissionService backs the admin dashboard.
type SubmissionService struct {
	submissions repository.SubmissionRepository
	jobs        repository.NotificationJobRepository
	dispatcher  events.Dispatcher
	loc         *time.Location
	now         func() time.Time
}

// SubmissionDependencies bundles repositories for the submission service.
type SubmissionDependencies struct {
	SubmissionRepo repository.SubmissionRepository
	JobRepo        repository.NotificationJobRepository
	Dispatcher     events.Dispatcher
	Location       *time.Location
}

// SubmissionDetail is a submission together with its notification jobs.
type SubmissionDetail struct {
	Submission *domain.Submission
	Jobs       []domain.NotificationJob
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SubmissionService{
		submissions: deps.SubmissionRepo,
		jobs:        deps.JobRepo,
		dispatcher:  deps.Dispatcher,
		loc:         loc,
		now:         time.Now,
	}
}

// List returns one page of submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, filter repository.SubmissionFilter) (*repository.SubmissionPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *filter.Status})
	}
	if filter.ProjectType != nil && !filter.ProjectType.Valid() {
		return nil, apperrors.NewValidationError("invalid project type filter", map[string]any{"project_type": *filter.ProjectType})
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, apperrors.NewValidationError("created_from must not be after created_to", nil)
	}
	return s.submissions.List(ctx, filter)
}

// Recent returns the latest submissions.
func (s *SubmissionService) Recent(ctx context.Context, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.submissions.Recent(ctx, limit)
}

// Get loads a submission and its notification jobs.
func (s *SubmissionService) Get(ctx context.Context, id string) (*SubmissionDetail, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListBySubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SubmissionDetail{Submission: submission, Jobs: jobs}, nil
}

// MarkAsRead records that the owner has seen the submission.
func (s *SubmissionService) MarkAsRead(ctx context.Context, id, actor string) (*domain.Submission, error) {
	return s.transition(ctx, id, actor, s.submissions.MarkAsRead)
}

// MarkAsReplied records that the owner has answered the submission.
func (s *SubmissionService) MarkAsReplied(ctx context.Context, id, actor string) (*domain.Submission, error) {
	return s.transition(ctx, id, actor, s.submissions.MarkAsReplied)
}

// UpdateStatus moves the submission to status. Backward moves are conflicts.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, actor string) (*domain.Submission, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status":  status,
			"allowed": []domain.SubmissionStatus{domain.SubmissionStatusNew, domain.SubmissionStatusRead, domain.SubmissionStatusReplied},
		})
	}
	return s.transition(ctx, id, actor, func(ctx context.Context, id string) (bool, error) {
		return s.submissions.UpdateStatus(ctx, id, status)
	})
}

func (s *SubmissionService) transition(ctx context.Context, id, actor string, apply func(context.Context, string) (bool, error)) (*domain.Submission, error) {
	before, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := apply(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewConflict("status cannot move backwards", map[string]any{"status": before.Status})
	}
	after, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if after.Status != before.Status {
		s.publishEvent(ctx, events.Event{
			Type:         events.EventSubmissionStatusChanged,
			SubmissionID: id,
			Payload: events.SubmissionStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
				ChangedBy: actor,
			},
		})
	}
	return after, nil
}

// Stats aggregates status and period counts.
func (s *SubmissionService) Stats(ctx context.Context) (domain.SubmissionStats, error) {
	byStatus, err := s.submissions.CountsByStatus(ctx)
	if err != nil {
		return domain.SubmissionStats{}, err
	}
	byPeriod, err := s.submissions.CountsByPeriod(ctx, s.now(), s.loc)
	if err != nil {
		return domain.SubmissionStats{}, err
	}
	return domain.SubmissionStats{
		Total:     byStatus.Total,
		New:       byStatus.New,
		Read:      byStatus.Read,
		Replied:   byStatus.Replied,
		Today:     byPeriod.Today,
		ThisWeek:  byPeriod.ThisWeek,
		ThisMonth: byPeriod.ThisMonth,
	}, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*domain.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("submission", map[string]any{"id": id})
	}
	return submission, err
}

func (s *SubmissionService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
