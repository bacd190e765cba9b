package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingScoreBounds(t *testing.T) {
	r := &Rating{ID: uuid.New(), ProjectID: uuid.New()}
	now := time.Now()

	_, err := r.RateByCompany(0, "", uuid.New(), now)
	assert.ErrorIs(t, err, ErrRatingOutOfRange)
	_, err = r.RateByCompany(6, "", uuid.New(), now)
	assert.ErrorIs(t, err, ErrRatingOutOfRange)
	assert.Nil(t, r.ByCompany.RatedAt)

	_, err = r.RateByStudent(3, strings.Repeat("x", MaxReviewLength+1), uuid.New(), now)
	assert.ErrorIs(t, err, ErrReviewTooLong)
}

func TestRatingFirstThenEdit(t *testing.T) {
	r := &Rating{ID: uuid.New(), ProjectID: uuid.New()}
	rater := uuid.New()
	now := time.Now()

	first, err := r.RateByCompany(4, "Solid work", rater, now)
	require.NoError(t, err)
	assert.True(t, first)
	require.NotNil(t, r.ByCompany.RatedAt)
	assert.Equal(t, rater, *r.ByCompany.RatedBy)

	// Revising inside the window is not a new rating.
	first, err = r.RateByCompany(5, "Even better on second look", rater, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, first)
	assert.Equal(t, 5, r.ByCompany.Score)
	// The original rating timestamp is kept.
	assert.Equal(t, now, *r.ByCompany.RatedAt)
}

func TestRatingEditWindowCloses(t *testing.T) {
	r := &Rating{ID: uuid.New(), ProjectID: uuid.New()}
	rater := uuid.New()
	now := time.Now()

	_, err := r.RateByCompany(4, "Solid work", rater, now)
	require.NoError(t, err)

	_, err = r.RateByCompany(1, "Changed my mind", rater, now.Add(RatingEditWindow))
	assert.ErrorIs(t, err, ErrRatingWindowClosed)
	assert.Equal(t, 4, r.ByCompany.Score)
}

func TestRatingBothRated(t *testing.T) {
	r := &Rating{ID: uuid.New(), ProjectID: uuid.New()}
	now := time.Now()

	_, err := r.RateByCompany(5, "", uuid.New(), now)
	require.NoError(t, err)
	assert.False(t, r.BothRated)

	_, err = r.RateByStudent(4, "Clear briefs, fast feedback", uuid.New(), now)
	require.NoError(t, err)
	assert.True(t, r.BothRated)
}

func TestProfileRecordRating(t *testing.T) {
	student := &StudentProfile{}
	student.RecordRating(5)
	student.RecordRating(4)
	assert.Equal(t, 2, student.TotalRatings)
	assert.InDelta(t, 4.5, student.AverageRating, 0.001)

	company := &CompanyProfile{}
	company.RecordRating(2)
	company.RecordRating(4)
	company.RecordRating(3)
	assert.Equal(t, 3, company.TotalRatings)
	assert.InDelta(t, 3.0, company.AverageRating, 0.001)
}
