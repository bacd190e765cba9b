package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingEditWindow is how long a rater can revise their score after first
// submitting it.
const RatingEditWindow = 24 * time.Hour

const MaxReviewLength = 1000

// RatingPart is one side of a mutual project rating. RatedAt doubles as the
// "has rated" marker.
type RatingPart struct {
	Score   int        `json:"score"`
	Review  string     `gorm:"size:1000" json:"review"`
	RatedAt *time.Time `json:"rated_at"`
	RatedBy *uuid.UUID `json:"rated_by"`
}

// Rating holds both directions of the post-completion rating for one project:
// the company rates the student's work, the student rates the company. One row
// per project.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"not null;uniqueIndex" json:"project_id"`

	ByCompany RatingPart `gorm:"embedded;embeddedPrefix:company_" json:"by_company"`
	ByStudent RatingPart `gorm:"embedded;embeddedPrefix:student_" json:"by_student"`

	BothRated bool `gorm:"default:false" json:"both_rated"`

	Project Project `gorm:"foreignkey:ProjectID" json:"project,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// set records or revises one side. The first call wins the rating; later calls
// are edits and only allowed inside the edit window. Returns whether this was
// the first rating, so callers know when to fold the score into the profile
// average.
func (rp *RatingPart) set(score int, review string, rater uuid.UUID, now time.Time) (bool, error) {
	if score < 1 || score > 5 {
		return false, ErrRatingOutOfRange
	}
	if len(review) > MaxReviewLength {
		return false, ErrReviewTooLong
	}
	if rp.RatedAt == nil {
		rp.Score = score
		rp.Review = review
		rp.RatedBy = &rater
		rp.RatedAt = &now
		return true, nil
	}
	if now.Sub(*rp.RatedAt) >= RatingEditWindow {
		return false, ErrRatingWindowClosed
	}
	rp.Score = score
	rp.Review = review
	return false, nil
}

// RateByCompany records the company's rating of the student's work.
func (r *Rating) RateByCompany(score int, review string, rater uuid.UUID, now time.Time) (bool, error) {
	first, err := r.ByCompany.set(score, review, rater, now)
	if err != nil {
		return false, err
	}
	r.syncBothRated()
	return first, nil
}

// RateByStudent records the student's rating of the company.
func (r *Rating) RateByStudent(score int, review string, rater uuid.UUID, now time.Time) (bool, error) {
	first, err := r.ByStudent.set(score, review, rater, now)
	if err != nil {
		return false, err
	}
	r.syncBothRated()
	return first, nil
}

func (r *Rating) syncBothRated() {
	r.BothRated = r.ByCompany.RatedAt != nil && r.ByStudent.RatedAt != nil
}
