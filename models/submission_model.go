package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	SubmissionStatusUnderReview       = "under-review"
	SubmissionStatusApproved          = "approved"
	SubmissionStatusRevisionRequested = "revision-requested"
	SubmissionStatusRejected          = "rejected"
)

// Submission is one versioned delivery of work on a project. Versions start at
// 1 and are never reused, even across revision cycles.
type Submission struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"not null;uniqueIndex:idx_submissions_project_version" json:"project_id"`
	Version   int       `gorm:"not null;uniqueIndex:idx_submissions_project_version" json:"version"`

	Files   pq.StringArray `gorm:"type:text[]" json:"files"`
	Links   pq.StringArray `gorm:"type:text[]" json:"links"`
	Message string         `gorm:"type:text" json:"message"`

	Status      string    `gorm:"size:30;not null" json:"status"`
	SubmittedBy uuid.UUID `gorm:"not null" json:"submitted_by"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`

	ReviewedBy *uuid.UUID `json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	Feedback   *string    `gorm:"type:text" json:"feedback"`

	CreatedAt time.Time `json:"created_at"`
}

// RevisionEvent is one entry in a project's revision audit trail.
type RevisionEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID `gorm:"not null;index" json:"project_id"`
	Version     int       `gorm:"not null" json:"version"`
	RequestedBy uuid.UUID `gorm:"not null" json:"requested_by"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	RequestedAt time.Time `gorm:"not null" json:"requested_at"`
}
