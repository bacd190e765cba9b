package models

import (
	"time"

	"github.com/google/uuid"
)

type CompanyProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID `gorm:"not null;uniqueIndex" json:"user_id"`

	CompanyName string  `gorm:"size:255;not null" json:"company_name"`
	Industry    string  `gorm:"size:100" json:"industry"`
	Website     *string `gorm:"size:500" json:"website"`
	City        string  `gorm:"size:255" json:"city"`
	About       string  `gorm:"type:text" json:"about"`
	LogoURL     *string `gorm:"size:500" json:"logo_url"`

	TotalSpent        float64 `gorm:"type:numeric(12,2);default:0.00" json:"total_spent"`
	CompletedProjects int     `gorm:"default:0" json:"completed_projects"`

	AverageRating float64 `gorm:"type:numeric(3,2);default:0.00" json:"average_rating"`
	TotalRatings  int     `gorm:"default:0" json:"total_ratings"`

	User User `gorm:"foreignkey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordSpend tracks the gross amount paid out on a completed project.
func (cp *CompanyProfile) RecordSpend(gross float64) {
	cp.TotalSpent += gross
	cp.CompletedProjects++
}

// RecordRating folds a new student rating into the running average. Edits to
// an existing rating are not re-counted.
func (cp *CompanyProfile) RecordRating(score int) {
	cp.AverageRating = (cp.AverageRating*float64(cp.TotalRatings) + float64(score)) / float64(cp.TotalRatings+1)
	cp.TotalRatings++
}
