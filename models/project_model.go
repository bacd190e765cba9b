package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	ProjectStatusOpen              = "open"
	ProjectStatusAssigned          = "assigned"
	ProjectStatusInProgress        = "in-progress"
	ProjectStatusUnderReview       = "under-review"
	ProjectStatusRevisionRequested = "revision-requested"
	ProjectStatusCompleted         = "completed"
	ProjectStatusCancelled         = "cancelled"
	ProjectStatusClosed            = "closed"
	ProjectStatusDisputed          = "disputed"
)

// DefaultMaxRevisions is frozen onto each project at creation time.
const DefaultMaxRevisions = 2

var ProjectCategories = []string{
	"Web Development",
	"Mobile Development",
	"Data Science",
	"AI/ML",
	"Cloud & DevOps",
	"Backend Development",
	"Frontend Development",
	"Full Stack",
	"Blockchain",
	"IoT",
	"Cybersecurity",
	"Other",
}

var ProjectDurations = []string{"1 week", "2 weeks", "1 month", "2 months", "3 months", "6 months", "1 year"}

type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CompanyID uuid.UUID `gorm:"not null;index" json:"company_id"`
	CreatedBy uuid.UUID `gorm:"not null" json:"-"`

	Title           string         `gorm:"size:100;not null" json:"title"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	Category        string         `gorm:"size:50;not null" json:"category"`
	RequiredSkills  pq.StringArray `gorm:"type:text[];not null" json:"required_skills"`
	BudgetMin       float64        `gorm:"type:numeric(12,2);not null" json:"budget_min"`
	BudgetMax       float64        `gorm:"type:numeric(12,2);not null" json:"budget_max"`
	ProjectDuration string         `gorm:"size:20;not null" json:"project_duration"`
	Deadline        time.Time      `gorm:"not null" json:"deadline"`

	Status            string     `gorm:"size:30;not null;default:'open';index" json:"status"`
	ApplicationsCount int        `gorm:"default:0" json:"applications_count"`
	AssignedStudentID *uuid.UUID `gorm:"index" json:"assigned_student_id"`

	// Submission workflow. CurrentSubmission* always points at the newest
	// submission; at most one submission is in a non-terminal status.
	Submissions              []Submission `gorm:"foreignkey:ProjectID" json:"submissions,omitempty"`
	CurrentSubmissionID      *uuid.UUID   `json:"current_submission_id"`
	CurrentSubmissionVersion int          `gorm:"default:0" json:"current_submission_version"`
	RevisionCount            int          `gorm:"default:0" json:"revision_count"`
	MaxRevisionsAllowed      int          `gorm:"not null;default:2" json:"max_revisions_allowed"`

	// Payment linkage. PaymentStatus mirrors the payment record and is not
	// authoritative.
	PaymentID     *uuid.UUID `json:"payment_id"`
	PaymentStatus *string    `gorm:"size:30" json:"payment_status"`
	PaymentAmount float64    `gorm:"type:numeric(12,2);default:0.00" json:"payment_amount"`

	// Workspace tracking
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `gorm:"default:0" json:"message_count"`

	// Set once both sides have rated each other after completion.
	RatingCompleted bool `gorm:"default:false" json:"rating_completed"`

	StartedAt    *time.Time `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	ApprovedAt   *time.Time `json:"approved_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	ClosedReason *string    `json:"closed_reason"`

	Company         CompanyProfile  `gorm:"foreignkey:CompanyID" json:"company,omitempty"`
	AssignedStudent *StudentProfile `gorm:"foreignkey:AssignedStudentID" json:"assigned_student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the descriptive fields at creation time.
func (p *Project) Validate(now time.Time) error {
	if p.Title == "" || len(p.Title) > 100 {
		return errors.New("title is required and cannot exceed 100 characters")
	}
	if p.Description == "" {
		return errors.New("description is required")
	}
	if !contains(ProjectCategories, p.Category) {
		return errors.New("invalid project category")
	}
	if len(p.RequiredSkills) == 0 {
		return errors.New("at least one required skill is needed")
	}
	if p.BudgetMin < 0 || p.BudgetMax < 0 {
		return errors.New("budget cannot be negative")
	}
	if p.BudgetMin > p.BudgetMax {
		return errors.New("minimum budget cannot exceed maximum budget")
	}
	if !contains(ProjectDurations, p.ProjectDuration) {
		return errors.New("invalid project duration")
	}
	if !p.Deadline.After(now) {
		return errors.New("deadline must be a future date")
	}
	return nil
}

// OpenForApplications reports whether the project still accepts applications.
func (p *Project) OpenForApplications(now time.Time) error {
	if p.Status != ProjectStatusOpen {
		return &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusOpen}
	}
	if !p.Deadline.After(now) {
		return ErrDeadlinePassed
	}
	return nil
}

// Assign binds the project to the accepted student. Callers must hold the
// project row lock so two concurrent accepts cannot both pass the guard.
func (p *Project) Assign(studentID uuid.UUID) error {
	if p.AssignedStudentID != nil {
		return ErrProjectAlreadyAssigned
	}
	if p.Status != ProjectStatusOpen {
		return &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusOpen}
	}
	p.AssignedStudentID = &studentID
	p.Status = ProjectStatusAssigned
	return nil
}

func (p *Project) StartWork(now time.Time) error {
	if p.Status != ProjectStatusAssigned {
		return &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusAssigned}
	}
	p.Status = ProjectStatusInProgress
	p.StartedAt = &now
	return nil
}

// SubmitWork appends a new submission and moves the project under review.
// Version numbers are monotonic with no gaps and are never reassigned.
func (p *Project) SubmitWork(files, links []string, message string, studentID uuid.UUID, now time.Time) (*Submission, error) {
	if p.Status != ProjectStatusInProgress && p.Status != ProjectStatusRevisionRequested {
		return nil, &InvalidTransitionError{
			Entity:   "project",
			Current:  p.Status,
			Required: ProjectStatusInProgress + " or " + ProjectStatusRevisionRequested,
		}
	}

	submission := Submission{
		ID:          uuid.New(),
		ProjectID:   p.ID,
		Version:     len(p.Submissions) + 1,
		Files:       files,
		Links:       links,
		Message:     message,
		Status:      SubmissionStatusUnderReview,
		SubmittedBy: studentID,
		SubmittedAt: now,
	}
	p.Submissions = append(p.Submissions, submission)

	sub := &p.Submissions[len(p.Submissions)-1]
	p.CurrentSubmissionID = &sub.ID
	p.CurrentSubmissionVersion = sub.Version
	p.Status = ProjectStatusUnderReview
	p.SubmittedAt = &now
	return sub, nil
}

// ApproveWork marks the current submission approved and completes the project.
func (p *Project) ApproveWork(reviewerID uuid.UUID, feedback string, now time.Time) (*Submission, error) {
	if p.Status != ProjectStatusUnderReview {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusUnderReview}
	}
	sub := p.CurrentSubmission()
	if sub == nil {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: "a submission under review"}
	}

	sub.Status = SubmissionStatusApproved
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	if feedback != "" {
		sub.Feedback = &feedback
	}

	p.Status = ProjectStatusCompleted
	p.ReviewedAt = &now
	p.ApprovedAt = &now
	p.CompletedAt = &now
	return sub, nil
}

// RequestRevision sends the current submission back to the student. The
// revision cap is a hard ceiling; exceeding it is an error, never a clamp.
func (p *Project) RequestRevision(reviewerID uuid.UUID, reason string, now time.Time) (*Submission, error) {
	if p.Status != ProjectStatusUnderReview {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusUnderReview}
	}
	if p.RevisionCount >= p.MaxRevisionsAllowed {
		return nil, &RevisionLimitError{Allowed: p.MaxRevisionsAllowed}
	}
	sub := p.CurrentSubmission()
	if sub == nil {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: "a submission under review"}
	}

	sub.Status = SubmissionStatusRevisionRequested
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	sub.Feedback = &reason

	p.RevisionCount++
	p.Status = ProjectStatusRevisionRequested
	p.ReviewedAt = &now
	return sub, nil
}

// RejectWork disputes the project. Rejection is only permitted once the
// revision budget is exhausted.
func (p *Project) RejectWork(reviewerID uuid.UUID, reason string, now time.Time) (*Submission, error) {
	if p.Status != ProjectStatusUnderReview {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusUnderReview}
	}
	if p.RevisionCount < p.MaxRevisionsAllowed {
		return nil, ErrRevisionsNotExhausted
	}
	sub := p.CurrentSubmission()
	if sub == nil {
		return nil, &InvalidTransitionError{Entity: "project", Current: p.Status, Required: "a submission under review"}
	}

	sub.Status = SubmissionStatusRejected
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now
	sub.Feedback = &reason

	p.Status = ProjectStatusDisputed
	p.ReviewedAt = &now
	return sub, nil
}

// Close force-closes an unassigned open project, used by the expiry sweep.
func (p *Project) Close(reason string, now time.Time) error {
	if p.Status != ProjectStatusOpen {
		return &InvalidTransitionError{Entity: "project", Current: p.Status, Required: ProjectStatusOpen}
	}
	if p.AssignedStudentID != nil {
		return ErrProjectAlreadyAssigned
	}
	p.Status = ProjectStatusClosed
	p.ClosedAt = &now
	p.ClosedReason = &reason
	return nil
}

func (p *Project) Cancel() error {
	if p.Status != ProjectStatusOpen && p.Status != ProjectStatusAssigned {
		return &InvalidTransitionError{
			Entity:   "project",
			Current:  p.Status,
			Required: ProjectStatusOpen + " or " + ProjectStatusAssigned,
		}
	}
	p.Status = ProjectStatusCancelled
	return nil
}

func (p *Project) CurrentSubmission() *Submission {
	if p.CurrentSubmissionID == nil {
		return nil
	}
	for i := range p.Submissions {
		if p.Submissions[i].ID == *p.CurrentSubmissionID {
			return &p.Submissions[i]
		}
	}
	return nil
}

// LinkPayment records the one payment tied to this project. Set-once.
func (p *Project) LinkPayment(paymentID uuid.UUID, amount float64) error {
	if p.PaymentID != nil {
		return ErrPaymentAlreadyLinked
	}
	p.PaymentID = &paymentID
	p.PaymentAmount = amount
	return nil
}

func (p *Project) SetPaymentStatus(status string) {
	p.PaymentStatus = &status
}

// EscrowAmount is the amount a payment record is created with when none was
// pre-created: the explicit payment amount, falling back to the budget.
func (p *Project) EscrowAmount() float64 {
	if p.PaymentAmount > 0 {
		return p.PaymentAmount
	}
	if p.BudgetMax > 0 {
		return p.BudgetMax
	}
	return p.BudgetMin
}

func (p *Project) Touch(now time.Time) {
	p.LastActivity = now
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
