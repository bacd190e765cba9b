package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StudentProfile carries the freelancer-facing data for a user with the
// student role. The earnings counters move in lockstep with payment
// transitions: pending on approval, total on release.
type StudentProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID `gorm:"not null;uniqueIndex" json:"user_id"`

	CollegeName  string         `gorm:"size:255" json:"college_name"`
	City         string         `gorm:"size:255" json:"city"`
	Course       string         `gorm:"size:255" json:"course"`
	YearOfStudy  string         `gorm:"size:50" json:"year_of_study"`
	Skills       pq.StringArray `gorm:"type:text[]" json:"skills"`
	Bio          string         `gorm:"type:text" json:"bio"`
	ResumeURL    *string        `gorm:"size:500" json:"resume_url"`
	PortfolioURL *string        `gorm:"size:500" json:"portfolio_url"`

	TotalEarned       float64    `gorm:"type:numeric(12,2);default:0.00" json:"total_earned"`
	PendingPayments   float64    `gorm:"type:numeric(12,2);default:0.00" json:"pending_payments"`
	CompletedProjects int        `gorm:"default:0" json:"completed_projects"`
	LastPaymentDate   *time.Time `json:"last_payment_date"`

	AverageRating float64 `gorm:"type:numeric(3,2);default:0.00" json:"average_rating"`
	TotalRatings  int     `gorm:"default:0" json:"total_ratings"`

	User User `gorm:"foreignkey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddPendingEarnings records a net amount moving into escrow for this student.
func (sp *StudentProfile) AddPendingEarnings(net float64) {
	sp.PendingPayments += net
}

// ReleaseEarnings moves a released net amount from pending to total. Pending
// never goes negative even if the pending counter drifted.
func (sp *StudentProfile) ReleaseEarnings(net float64, at time.Time) {
	sp.PendingPayments -= net
	if sp.PendingPayments < 0 {
		sp.PendingPayments = 0
	}
	sp.TotalEarned += net
	sp.CompletedProjects++
	sp.LastPaymentDate = &at
}

// DeductPendingEarnings backs out a pending amount, used on refunds.
func (sp *StudentProfile) DeductPendingEarnings(amount float64) {
	sp.PendingPayments -= amount
	if sp.PendingPayments < 0 {
		sp.PendingPayments = 0
	}
}

// RecordRating folds a new company rating into the running average. Edits to
// an existing rating are not re-counted.
func (sp *StudentProfile) RecordRating(score int) {
	sp.AverageRating = (sp.AverageRating*float64(sp.TotalRatings) + float64(score)) / float64(sp.TotalRatings+1)
	sp.TotalRatings++
}
