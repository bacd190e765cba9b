package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	ApplicationStatusPending     = "pending"
	ApplicationStatusShortlisted = "shortlisted"
	ApplicationStatusAccepted    = "accepted"
	ApplicationStatusRejected    = "rejected"
	ApplicationStatusWithdrawn   = "withdrawn"

	// Reserved for the multi-round selection flow. No wired handler produces
	// these; they exist so stored data from that flow stays representable.
	ApplicationStatusAwaitingAcceptance = "awaiting_acceptance"
	ApplicationStatusOnHold             = "on_hold"
	ApplicationStatusExpired            = "expired"
	ApplicationStatusRejectedByStudent  = "rejected_by_student"
)

const (
	RejectionReasonCandidateSelected = "Another candidate has been selected for this project"
	RejectionReasonProjectExpired    = "Project closed - deadline expired"
)

var ApplicationEstimatedTimes = []string{"1 week", "2 weeks", "3-4 weeks", "1-2 months", "2-3 months"}

// Application is one student's bid on one project. The student display fields
// are a snapshot captured at apply time: they deliberately do not follow later
// profile edits.
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"not null;index:idx_applications_project_status" json:"project_id"`
	StudentID uuid.UUID `gorm:"not null;index" json:"student_id"`
	CompanyID uuid.UUID `gorm:"not null;index" json:"company_id"`

	CoverLetter   string  `gorm:"type:text;not null" json:"cover_letter"`
	ProposedPrice float64 `gorm:"type:numeric(12,2);not null" json:"proposed_price"`
	EstimatedTime string  `gorm:"size:20;not null" json:"estimated_time"`

	Status          string `gorm:"size:30;not null;default:'pending';index:idx_applications_project_status" json:"status"`
	RejectionReason string `gorm:"size:500" json:"rejection_reason"`

	AppliedAt     time.Time  `gorm:"not null" json:"applied_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	ShortlistedAt *time.Time `json:"shortlisted_at"`
	AcceptedAt    *time.Time `json:"accepted_at"`
	RejectedAt    *time.Time `json:"rejected_at"`
	WithdrawnAt   *time.Time `json:"withdrawn_at"`

	// Apply-time snapshot of the student's profile.
	StudentName      string         `gorm:"size:255" json:"student_name"`
	StudentCollege   string         `gorm:"size:255" json:"student_college"`
	StudentCity      string         `gorm:"size:255" json:"student_city"`
	StudentSkills    pq.StringArray `gorm:"type:text[]" json:"student_skills"`
	StudentResumeURL string         `gorm:"size:500" json:"student_resume_url"`
	SnapshotAt       time.Time      `json:"snapshot_at"`

	Project Project        `gorm:"foreignkey:ProjectID" json:"project,omitempty"`
	Student StudentProfile `gorm:"foreignkey:StudentID" json:"student,omitempty"`
	Company CompanyProfile `gorm:"foreignkey:CompanyID" json:"company,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the application can still be decided on.
func (a *Application) IsOpen() bool {
	return a.Status == ApplicationStatusPending || a.Status == ApplicationStatusShortlisted
}

func (a *Application) Shortlist(now time.Time) error {
	if a.Status != ApplicationStatusPending {
		return &InvalidTransitionError{Entity: "application", Current: a.Status, Required: ApplicationStatusPending}
	}
	a.Status = ApplicationStatusShortlisted
	a.ShortlistedAt = &now
	a.ReviewedAt = &now
	return nil
}

func (a *Application) Accept(now time.Time) error {
	if !a.IsOpen() {
		return &InvalidTransitionError{
			Entity:   "application",
			Current:  a.Status,
			Required: ApplicationStatusPending + " or " + ApplicationStatusShortlisted,
		}
	}
	a.Status = ApplicationStatusAccepted
	a.AcceptedAt = &now
	a.ReviewedAt = &now
	return nil
}

func (a *Application) Reject(reason string, now time.Time) error {
	if !a.IsOpen() {
		return &InvalidTransitionError{
			Entity:   "application",
			Current:  a.Status,
			Required: ApplicationStatusPending + " or " + ApplicationStatusShortlisted,
		}
	}
	a.Status = ApplicationStatusRejected
	a.RejectionReason = reason
	a.RejectedAt = &now
	return nil
}

func (a *Application) Withdraw(now time.Time) error {
	if a.Status != ApplicationStatusPending {
		return &InvalidTransitionError{Entity: "application", Current: a.Status, Required: ApplicationStatusPending}
	}
	a.Status = ApplicationStatusWithdrawn
	a.WithdrawnAt = &now
	return nil
}

// SnapshotStudent captures the student's display data at apply time so the
// application stays readable after later profile edits.
func (a *Application) SnapshotStudent(profile *StudentProfile, fullName string, now time.Time) {
	a.StudentName = fullName
	a.StudentCollege = profile.CollegeName
	a.StudentCity = profile.City
	a.StudentSkills = append(pq.StringArray{}, profile.Skills...)
	if profile.ResumeURL != nil {
		a.StudentResumeURL = *profile.ResumeURL
	}
	a.SnapshotAt = now
}
