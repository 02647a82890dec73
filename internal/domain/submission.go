package domain

import "time"

// SubmissionStatus enumerates lifecycle states for contact submissions.
type SubmissionStatus string

const (
	SubmissionStatusNew     SubmissionStatus = "new"
	SubmissionStatusRead    SubmissionStatus = "read"
	SubmissionStatusReplied SubmissionStatus = "replied"
)

var submissionStatusLabels = map[SubmissionStatus]string{
	SubmissionStatusNew:     "New",
	SubmissionStatusRead:    "Read",
	SubmissionStatusReplied: "Replied",
}

// Valid reports whether s is one of the enumerated statuses.
func (s SubmissionStatus) Valid() bool {
	_, ok := submissionStatusLabels[s]
	return ok
}

// Rank orders statuses along new -> read -> replied. Unknown statuses rank -1.
func (s SubmissionStatus) Rank() int {
	switch s {
	case SubmissionStatusNew:
		return 0
	case SubmissionStatusRead:
		return 1
	case SubmissionStatusReplied:
		return 2
	default:
		return -1
	}
}

// Label returns the human readable status.
func (s SubmissionStatus) Label() string {
	if label, ok := submissionStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// ProjectType enumerates the kinds of work a visitor can ask about.
type ProjectType string

const (
	ProjectTypeWebApplication ProjectType = "web-application"
	ProjectTypeMobileApp      ProjectType = "mobile-app"
	ProjectTypeECommerce      ProjectType = "e-commerce"
	ProjectTypeSaaSPlatform   ProjectType = "saas-platform"
	ProjectTypeAPIDevelopment ProjectType = "api-development"
	ProjectTypeConsultation   ProjectType = "consultation"
	ProjectTypeOther          ProjectType = "other"
)

// GeneralInquiryLabel is used when a submission carries no project type.
const GeneralInquiryLabel = "General Inquiry"

var projectTypeLabels = map[ProjectType]string{
	ProjectTypeWebApplication: "Web Application",
	ProjectTypeMobileApp:      "Mobile App",
	ProjectTypeECommerce:      "E-commerce",
	ProjectTypeSaaSPlatform:   "SaaS Platform",
	ProjectTypeAPIDevelopment: "API Development",
	ProjectTypeConsultation:   "Consultation",
	ProjectTypeOther:          "Other",
}

// ProjectTypes lists the accepted values in display order.
func ProjectTypes() []ProjectType {
	return []ProjectType{
		ProjectTypeWebApplication,
		ProjectTypeMobileApp,
		ProjectTypeECommerce,
		ProjectTypeSaaSPlatform,
		ProjectTypeAPIDevelopment,
		ProjectTypeConsultation,
		ProjectTypeOther,
	}
}

// Valid reports whether p is part of the closed set.
func (p ProjectType) Valid() bool {
	_, ok := projectTypeLabels[p]
	return ok
}

// Label returns the display label, falling back to GeneralInquiryLabel.
func (p ProjectType) Label() string {
	if label, ok := projectTypeLabels[p]; ok {
		return label
	}
	return GeneralInquiryLabel
}

// Submission is the durable record of one contact form attempt.
type Submission struct {
	ID          string
	Name        string
	Email       string
	ProjectType *ProjectType
	Message     string
	IPAddress   string
	Status      SubmissionStatus
	ReadAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectTypeLabel returns the label for the submission's project type.
func (s *Submission) ProjectTypeLabel() string {
	if s.ProjectType == nil {
		return GeneralInquiryLabel
	}
	return s.ProjectType.Label()
}

// SubmissionStats aggregates counts for the admin dashboard.
type SubmissionStats struct {
	Total     int64
	New       int64
	Read      int64
	Replied   int64
	Today     int64
	ThisWeek  int64
	ThisMonth int64
}
