package domain

import "time"

// NotificationKind distinguishes the two mails produced per submission.
type NotificationKind string

const (
	NotificationKindAdminNotice     NotificationKind = "admin-notice"
	NotificationKindSenderAutoReply NotificationKind = "sender-auto-reply"
)

// NotificationJobState tracks a job from enqueue to its terminal state.
type NotificationJobState string

const (
	NotificationJobQueued    NotificationJobState = "queued"
	NotificationJobDelivered NotificationJobState = "delivered"
	NotificationJobAbandoned NotificationJobState = "abandoned"
)

// NotificationJob is one unit of outbound email work derived from a Submission.
type NotificationJob struct {
	ID           string
	SubmissionID string
	Kind         NotificationKind
	Target       string
	Attempts     int
	MaxAttempts  int
	Deadline     *time.Time
	State        NotificationJobState
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
