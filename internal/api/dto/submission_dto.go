package dto

import (
	"time"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

// SubmissionResponse is the admin view of a submission.
type SubmissionResponse struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	ProjectType      *domain.ProjectType     `json:"project_type"`
	ProjectTypeLabel string                  `json:"project_type_label"`
	Message          string                  `json:"message"`
	IPAddress        string                  `json:"ip_address"`
	Status           domain.SubmissionStatus `json:"status"`
	StatusLabel      string                  `json:"status_label"`
	ReadAt           *time.Time              `json:"read_at"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// NotificationJobResponse is one ledger row attached to a submission.
type NotificationJobResponse struct {
	ID          string                      `json:"id"`
	Kind        domain.NotificationKind     `json:"kind"`
	Target      string                      `json:"target"`
	State       domain.NotificationJobState `json:"state"`
	Attempts    int                         `json:"attempts"`
	MaxAttempts int                         `json:"max_attempts"`
	Deadline    *time.Time                  `json:"deadline"`
	LastError   *string                     `json:"last_error"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// SubmissionDetailResponse bundles a submission and its notifications.
type SubmissionDetailResponse struct {
	SubmissionResponse
	Notifications []NotificationJobResponse `json:"notifications"`
}

// PaginationMeta describes one page of results.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// UpdateStatusRequest payload for PATCH /submissions/:id/status.
type UpdateStatusRequest struct {
	Status domain.SubmissionStatus `json:"status"`
}

// StatsResponse mirrors the dashboard counters.
type StatsResponse struct {
	Total     int64 `json:"total"`
	New       int64 `json:"new"`
	Read      int64 `json:"read"`
	Replied   int64 `json:"replied"`
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
}

// NewSubmissionResponse maps a domain submission.
func NewSubmissionResponse(s *domain.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               s.ID,
		Name:             s.Name,
		Email:            s.Email,
		ProjectType:      s.ProjectType,
		ProjectTypeLabel: s.ProjectTypeLabel(),
		Message:          s.Message,
		IPAddress:        s.IPAddress,
		Status:           s.Status,
		StatusLabel:      s.Status.Label(),
		ReadAt:           s.ReadAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// NewNotificationJobResponse maps a ledger row.
func NewNotificationJobResponse(j *domain.NotificationJob) NotificationJobResponse {
	return NotificationJobResponse{
		ID:          j.ID,
		Kind:        j.Kind,
		Target:      j.Target,
		State:       j.State,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		Deadline:    j.Deadline,
		LastError:   j.LastError,
		UpdatedAt:   j.UpdatedAt,
	}
}

// NewStatsResponse maps dashboard counters.
func NewStatsResponse(s domain.SubmissionStats) StatsResponse {
	return StatsResponse{
		Total:     s.Total,
		New:       s.New,
		Read:      s.Read,
		Replied:   s.Replied,
		Today:     s.Today,
		ThisWeek:  s.ThisWeek,
		ThisMonth: s.ThisMonth,
	}
}
