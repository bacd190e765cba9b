package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject() *Project {
	return &Project{
		ID:                  uuid.New(),
		CompanyID:           uuid.New(),
		CreatedBy:           uuid.New(),
		Title:               "Build a landing page",
		Description:         "A responsive landing page for our product launch.",
		Category:            "Web Development",
		RequiredSkills:      []string{"HTML", "CSS"},
		BudgetMin:           5000,
		BudgetMax:           10000,
		ProjectDuration:     "2 weeks",
		Deadline:            time.Now().Add(14 * 24 * time.Hour),
		Status:              ProjectStatusOpen,
		MaxRevisionsAllowed: DefaultMaxRevisions,
	}
}

func TestProjectValidate(t *testing.T) {
	now := time.Now()

	t.Run("valid project passes", func(t *testing.T) {
		p := newTestProject()
		assert.NoError(t, p.Validate(now))
	})

	t.Run("budget ordering", func(t *testing.T) {
		p := newTestProject()
		p.BudgetMin = 20000
		assert.Error(t, p.Validate(now))
	})

	t.Run("past deadline", func(t *testing.T) {
		p := newTestProject()
		p.Deadline = now.Add(-time.Hour)
		assert.Error(t, p.Validate(now))
	})

	t.Run("unknown category", func(t *testing.T) {
		p := newTestProject()
		p.Category = "Underwater Basket Weaving"
		assert.Error(t, p.Validate(now))
	})

	t.Run("no skills", func(t *testing.T) {
		p := newTestProject()
		p.RequiredSkills = nil
		assert.Error(t, p.Validate(now))
	})
}

func TestOpenForApplications(t *testing.T) {
	now := time.Now()

	t.Run("open and before deadline", func(t *testing.T) {
		p := newTestProject()
		assert.NoError(t, p.OpenForApplications(now))
	})

	t.Run("deadline passed", func(t *testing.T) {
		p := newTestProject()
		p.Deadline = now.Add(-time.Minute)
		assert.ErrorIs(t, p.OpenForApplications(now), ErrDeadlinePassed)
	})

	t.Run("not open", func(t *testing.T) {
		p := newTestProject()
		p.Status = ProjectStatusAssigned
		var transition *InvalidTransitionError
		assert.ErrorAs(t, p.OpenForApplications(now), &transition)
	})
}

func TestProjectAssign(t *testing.T) {
	p := newTestProject()
	studentID := uuid.New()

	require.NoError(t, p.Assign(studentID))
	assert.Equal(t, ProjectStatusAssigned, p.Status)
	require.NotNil(t, p.AssignedStudentID)
	assert.Equal(t, studentID, *p.AssignedStudentID)

	// Second assignment must lose, whoever it is for.
	err := p.Assign(uuid.New())
	assert.ErrorIs(t, err, ErrProjectAlreadyAssigned)
	assert.Equal(t, studentID, *p.AssignedStudentID)
}

func TestProjectAssignRequiresOpen(t *testing.T) {
	p := newTestProject()
	p.Status = ProjectStatusClosed

	err := p.Assign(uuid.New())
	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "project", transition.Entity)
	assert.Equal(t, ProjectStatusClosed, transition.Current)
}

func TestSubmitWorkVersioning(t *testing.T) {
	p := newTestProject()
	studentID := uuid.New()
	now := time.Now()

	require.NoError(t, p.Assign(studentID))
	require.NoError(t, p.StartWork(now))

	sub1, err := p.SubmitWork([]string{"v1.zip"}, nil, "first delivery", studentID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sub1.Version)
	assert.Equal(t, ProjectStatusUnderReview, p.Status)
	assert.Equal(t, 1, p.CurrentSubmissionVersion)

	_, err = p.RequestRevision(uuid.New(), "please adjust the colors", now)
	require.NoError(t, err)
	assert.Equal(t, ProjectStatusRevisionRequested, p.Status)

	sub2, err := p.SubmitWork([]string{"v2.zip"}, nil, "second delivery", studentID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sub2.Version)
	assert.Equal(t, 2, p.CurrentSubmissionVersion)
	require.NotNil(t, p.CurrentSubmissionID)
	assert.Equal(t, sub2.ID, *p.CurrentSubmissionID)
}

func TestSubmitWorkGuards(t *testing.T) {
	p := newTestProject()
	_, err := p.SubmitWork([]string{"v1.zip"}, nil, "too early", uuid.New(), time.Now())
	var transition *InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestRevisionCapAndRejection(t *testing.T) {
	p := newTestProject()
	studentID := uuid.New()
	reviewerID := uuid.New()
	now := time.Now()

	require.NoError(t, p.Assign(studentID))
	require.NoError(t, p.StartWork(now))

	// Rejection is not allowed while revision requests remain.
	_, err := p.SubmitWork([]string{"v1.zip"}, nil, "first", studentID, now)
	require.NoError(t, err)
	_, err = p.RejectWork(reviewerID, "not good enough", now)
	assert.ErrorIs(t, err, ErrRevisionsNotExhausted)

	// Burn through the full revision budget.
	for i := 1; i <= DefaultMaxRevisions; i++ {
		_, err = p.RequestRevision(reviewerID, "needs more work", now)
		require.NoError(t, err)
		assert.Equal(t, i, p.RevisionCount)

		_, err = p.SubmitWork([]string{"again.zip"}, nil, "revised", studentID, now)
		require.NoError(t, err)
	}

	// The cap is a hard ceiling.
	_, err = p.RequestRevision(reviewerID, "one more time", now)
	var limit *RevisionLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, DefaultMaxRevisions, limit.Allowed)

	// With the budget exhausted rejection becomes available.
	sub, err := p.RejectWork(reviewerID, "fundamental quality issues", now)
	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusRejected, sub.Status)
	assert.Equal(t, ProjectStatusDisputed, p.Status)
}

func TestApproveWorkCompletesProject(t *testing.T) {
	p := newTestProject()
	studentID := uuid.New()
	reviewerID := uuid.New()
	now := time.Now()

	require.NoError(t, p.Assign(studentID))
	require.NoError(t, p.StartWork(now))
	_, err := p.SubmitWork(nil, []string{"https://demo.example.com"}, "done", studentID, now)
	require.NoError(t, err)

	sub, err := p.ApproveWork(reviewerID, "great work", now)
	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusApproved, sub.Status)
	assert.Equal(t, ProjectStatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)

	// Approval is terminal; a second approval hits the status guard.
	_, err = p.ApproveWork(reviewerID, "again", now)
	var transition *InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestCloseOnlyOpenUnassigned(t *testing.T) {
	now := time.Now()

	p := newTestProject()
	require.NoError(t, p.Close("deadline expired", now))
	assert.Equal(t, ProjectStatusClosed, p.Status)
	require.NotNil(t, p.ClosedReason)

	// Closing twice fails on the status guard, which makes the sweep idempotent.
	err := p.Close("deadline expired", now)
	var transition *InvalidTransitionError
	assert.ErrorAs(t, err, &transition)

	assigned := newTestProject()
	require.NoError(t, assigned.Assign(uuid.New()))
	assigned.Status = ProjectStatusOpen
	err = assigned.Close("deadline expired", now)
	assert.True(t, errors.Is(err, ErrProjectAlreadyAssigned))
}

func TestCancelGuards(t *testing.T) {
	p := newTestProject()
	require.NoError(t, p.Cancel())
	assert.Equal(t, ProjectStatusCancelled, p.Status)

	inProgress := newTestProject()
	require.NoError(t, inProgress.Assign(uuid.New()))
	require.NoError(t, inProgress.StartWork(time.Now()))
	assert.Error(t, inProgress.Cancel())
}

func TestLinkPaymentSetOnce(t *testing.T) {
	p := newTestProject()
	paymentID := uuid.New()

	require.NoError(t, p.LinkPayment(paymentID, 10000))
	assert.Equal(t, 10000.0, p.PaymentAmount)

	err := p.LinkPayment(uuid.New(), 5000)
	assert.ErrorIs(t, err, ErrPaymentAlreadyLinked)
	assert.Equal(t, paymentID, *p.PaymentID)
}

func TestEscrowAmountFallback(t *testing.T) {
	p := newTestProject()
	assert.Equal(t, p.BudgetMax, p.EscrowAmount())

	p.PaymentAmount = 7500
	assert.Equal(t, 7500.0, p.EscrowAmount())

	minOnly := newTestProject()
	minOnly.BudgetMax = 0
	assert.Equal(t, minOnly.BudgetMin, minOnly.EscrowAmount())
}
