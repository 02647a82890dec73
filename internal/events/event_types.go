package events

import (
	"time"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubmissionReceived      EventType = "submission_received"
	EventSubmissionStatusChanged EventType = "submission_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	SubmissionID string      `json:"submission_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// SubmissionReceivedPayload carries the persisted submission.
type SubmissionReceivedPayload struct {
	Submission domain.Submission `json:"submission"`
}

// SubmissionStatusChangedPayload payload.
type SubmissionStatusChangedPayload struct {
	OldStatus domain.SubmissionStatus `json:"old_status"`
	NewStatus domain.SubmissionStatus `json:"new_status"`
	ChangedBy string                  `json:"changed_by,omitempty"`
}
