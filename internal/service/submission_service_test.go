package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/events"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

const testSubmissionID = "5b7f4c1e-6a33-4d6e-9a43-2f0d2a3c9b11"

// statefulRepo keeps one submission in memory and applies forward-only moves.
func statefulRepo(status domain.SubmissionStatus) *mockSubmissionRepo {
	current := domain.Submission{ID: testSubmissionID, Name: "Jane Doe", Status: status}
	advance := func(to domain.SubmissionStatus) bool {
		if to.Rank() < current.Status.Rank() {
			return false
		}
		current.Status = to
		return true
	}
	return &mockSubmissionRepo{
		getByIDFunc: func(_ context.Context, id string) (*domain.Submission, error) {
			if id != testSubmissionID {
				return nil, pgx.ErrNoRows
			}
			s := current
			return &s, nil
		},
		markAsReadFunc: func(context.Context, string) (bool, error) {
			if current.Status == domain.SubmissionStatusNew {
				current.Status = domain.SubmissionStatusRead
			}
			return true, nil
		},
		markAsRepliedFunc: func(context.Context, string) (bool, error) {
			current.Status = domain.SubmissionStatusReplied
			return true, nil
		},
		updateStatusFunc: func(_ context.Context, _ string, to domain.SubmissionStatus) (bool, error) {
			return advance(to), nil
		},
	}
}

func recordingDispatcher() (events.Dispatcher, *[]events.Event) {
	var seen []events.Event
	d := events.NewInMemoryDispatcher()
	d.Subscribe(events.EventSubmissionStatusChanged, func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	})
	return d, &seen
}

func requireDomainStatus(t *testing.T, err error, status int) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, status, de.HTTPStatus)
}

func TestSubmissionService_MarkAsReadPublishesChange(t *testing.T) {
	dispatcher, seen := recordingDispatcher()
	svc := NewSubmissionService(SubmissionDependencies{
		SubmissionRepo: statefulRepo(domain.SubmissionStatusNew),
		JobRepo:        &mockJobRepo{},
		Dispatcher:     dispatcher,
	})

	got, err := svc.MarkAsRead(context.Background(), testSubmissionID, "owner@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusRead, got.Status)
	require.Len(t, *seen, 1)
	payload, ok := (*seen)[0].Payload.(events.SubmissionStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.SubmissionStatusNew, payload.OldStatus)
	assert.Equal(t, domain.SubmissionStatusRead, payload.NewStatus)
	assert.Equal(t, "owner@example.com", payload.ChangedBy)
}

func TestSubmissionService_MarkAsReadOnRepliedKeepsStatus(t *testing.T) {
	dispatcher, seen := recordingDispatcher()
	svc := NewSubmissionService(SubmissionDependencies{
		SubmissionRepo: statefulRepo(domain.SubmissionStatusReplied),
		JobRepo:        &mockJobRepo{},
		Dispatcher:     dispatcher,
	})

	got, err := svc.MarkAsRead(context.Background(), testSubmissionID, "owner@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusReplied, got.Status)
	assert.Empty(t, *seen)
}

func TestSubmissionService_MarkAsReplied(t *testing.T) {
	svc := NewSubmissionService(SubmissionDependencies{
		SubmissionRepo: statefulRepo(domain.SubmissionStatusRead),
		JobRepo:        &mockJobRepo{},
	})

	got, err := svc.MarkAsReplied(context.Background(), testSubmissionID, "owner@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusReplied, got.Status)
}

func TestSubmissionService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		from       domain.SubmissionStatus
		to         domain.SubmissionStatus
		id         string
		wantStatus int
	}{
		{name: "forward move", from: domain.SubmissionStatusNew, to: domain.SubmissionStatusReplied, id: testSubmissionID},
		{name: "same status", from: domain.SubmissionStatusRead, to: domain.SubmissionStatusRead, id: testSubmissionID},
		{name: "backward move", from: domain.SubmissionStatusReplied, to: domain.SubmissionStatusNew, id: testSubmissionID, wantStatus: http.StatusConflict},
		{name: "invalid status", from: domain.SubmissionStatusNew, to: "archived", id: testSubmissionID, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown submission", from: domain.SubmissionStatusNew, to: domain.SubmissionStatusRead, id: "00000000-0000-0000-0000-000000000000", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSubmissionService(SubmissionDependencies{
				SubmissionRepo: statefulRepo(tt.from),
				JobRepo:        &mockJobRepo{},
			})

			got, err := svc.UpdateStatus(context.Background(), tt.id, tt.to, "owner@example.com")

			if tt.wantStatus != 0 {
				requireDomainStatus(t, err, tt.wantStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}
}

func TestSubmissionService_GetIncludesJobs(t *testing.T) {
	jobs := &mockJobRepo{listFunc: func(_ context.Context, id string) ([]domain.NotificationJob, error) {
		return []domain.NotificationJob{
			{ID: "job-1", SubmissionID: id, Kind: domain.NotificationKindAdminNotice, State: domain.NotificationJobDelivered},
			{ID: "job-2", SubmissionID: id, Kind: domain.NotificationKindSenderAutoReply, State: domain.NotificationJobQueued},
		}, nil
	}}
	svc := NewSubmissionService(SubmissionDependencies{
		SubmissionRepo: statefulRepo(domain.SubmissionStatusNew),
		JobRepo:        jobs,
	})

	detail, err := svc.Get(context.Background(), testSubmissionID)

	require.NoError(t, err)
	assert.Equal(t, testSubmissionID, detail.Submission.ID)
	assert.Len(t, detail.Jobs, 2)

	_, err = svc.Get(context.Background(), "missing")
	requireDomainStatus(t, err, http.StatusNotFound)
}

func TestSubmissionService_ListValidatesFilters(t *testing.T) {
	repo := &mockSubmissionRepo{}
	var captured repository.SubmissionFilter
	repo.listFunc = func(_ context.Context, f repository.SubmissionFilter) (*repository.SubmissionPage, error) {
		captured = f
		return &repository.SubmissionPage{Page: f.Page, PageSize: repository.SubmissionPageSize}, nil
	}
	svc := NewSubmissionService(SubmissionDependencies{SubmissionRepo: repo, JobRepo: &mockJobRepo{}})
	ctx := context.Background()

	badStatus := domain.SubmissionStatus("archived")
	_, err := svc.List(ctx, repository.SubmissionFilter{Status: &badStatus})
	requireDomainStatus(t, err, http.StatusUnprocessableEntity)

	badType := domain.ProjectType("blockchain")
	_, err = svc.List(ctx, repository.SubmissionFilter{ProjectType: &badType})
	requireDomainStatus(t, err, http.StatusUnprocessableEntity)

	from := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err = svc.List(ctx, repository.SubmissionFilter{CreatedFrom: &from, CreatedTo: &to})
	requireDomainStatus(t, err, http.StatusUnprocessableEntity)

	status := domain.SubmissionStatusNew
	term := "jane"
	page, err := svc.List(ctx, repository.SubmissionFilter{Status: &status, SearchTerm: &term, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.NotNil(t, captured.SearchTerm)
	assert.Equal(t, "jane", *captured.SearchTerm)
}

func TestSubmissionService_RecentClampsLimit(t *testing.T) {
	var limits []int
	repo := &mockSubmissionRepo{recentFunc: func(_ context.Context, limit int) ([]domain.Submission, error) {
		limits = append(limits, limit)
		return nil, nil
	}}
	svc := NewSubmissionService(SubmissionDependencies{SubmissionRepo: repo, JobRepo: &mockJobRepo{}})

	for _, l := range []int{0, -3, 5, 500} {
		_, err := svc.Recent(context.Background(), l)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{10, 10, 5, 50}, limits)
}

func TestSubmissionService_Stats(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	var gotLoc *time.Location
	repo := &mockSubmissionRepo{
		countsByStatusFunc: func(context.Context) (repository.StatusCounts, error) {
			return repository.StatusCounts{Total: 7, New: 3, Read: 2, Replied: 2}, nil
		},
		countsByPeriodFunc: func(_ context.Context, _ time.Time, l *time.Location) (repository.PeriodCounts, error) {
			gotLoc = l
			return repository.PeriodCounts{Today: 1, ThisWeek: 4, ThisMonth: 6}, nil
		},
	}
	svc := NewSubmissionService(SubmissionDependencies{SubmissionRepo: repo, JobRepo: &mockJobRepo{}, Location: loc})

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStats{Total: 7, New: 3, Read: 2, Replied: 2, Today: 1, ThisWeek: 4, ThisMonth: 6}, stats)
	assert.Equal(t, loc, gotLoc)
}

func TestSubmissionService_StatsPropagatesErrors(t *testing.T) {
	repo := &mockSubmissionRepo{countsByStatusFunc: func(context.Context) (repository.StatusCounts, error) {
		return repository.StatusCounts{}, errors.New("boom")
	}}
	svc := NewSubmissionService(SubmissionDependencies{SubmissionRepo: repo, JobRepo: &mockJobRepo{}})

	_, err := svc.Stats(context.Background())
	assert.EqualError(t, err, "boom")
}
