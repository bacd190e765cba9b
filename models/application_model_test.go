package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication() *Application {
	return &Application{
		ID:            uuid.New(),
		ProjectID:     uuid.New(),
		StudentID:     uuid.New(),
		CompanyID:     uuid.New(),
		CoverLetter:   "I have shipped three similar projects and can start immediately.",
		ProposedPrice: 8000,
		EstimatedTime: "2 weeks",
		Status:        ApplicationStatusPending,
		AppliedAt:     time.Now(),
	}
}

func TestApplicationShortlistThenAccept(t *testing.T) {
	a := newTestApplication()
	now := time.Now()

	require.NoError(t, a.Shortlist(now))
	assert.Equal(t, ApplicationStatusShortlisted, a.Status)
	require.NotNil(t, a.ShortlistedAt)

	require.NoError(t, a.Accept(now))
	assert.Equal(t, ApplicationStatusAccepted, a.Status)
	require.NotNil(t, a.AcceptedAt)
}

func TestApplicationAcceptFromPending(t *testing.T) {
	a := newTestApplication()
	require.NoError(t, a.Accept(time.Now()))
	assert.Equal(t, ApplicationStatusAccepted, a.Status)
}

func TestApplicationRejectRecordsReason(t *testing.T) {
	a := newTestApplication()
	now := time.Now()

	require.NoError(t, a.Reject(RejectionReasonCandidateSelected, now))
	assert.Equal(t, ApplicationStatusRejected, a.Status)
	assert.Equal(t, RejectionReasonCandidateSelected, a.RejectionReason)
	require.NotNil(t, a.RejectedAt)
}

func TestApplicationTerminalStatesAreFinal(t *testing.T) {
	now := time.Now()
	for _, status := range []string{
		ApplicationStatusAccepted,
		ApplicationStatusRejected,
		ApplicationStatusWithdrawn,
	} {
		a := newTestApplication()
		a.Status = status

		assert.False(t, a.IsOpen(), status)
		assert.Error(t, a.Shortlist(now), status)
		assert.Error(t, a.Accept(now), status)
		assert.Error(t, a.Reject("some reason here", now), status)
	}
}

func TestApplicationWithdrawOnlyPending(t *testing.T) {
	a := newTestApplication()
	require.NoError(t, a.Withdraw(time.Now()))
	assert.Equal(t, ApplicationStatusWithdrawn, a.Status)

	shortlisted := newTestApplication()
	require.NoError(t, shortlisted.Shortlist(time.Now()))
	var transition *InvalidTransitionError
	assert.ErrorAs(t, shortlisted.Withdraw(time.Now()), &transition)
}

func TestSnapshotStudentIsFrozen(t *testing.T) {
	a := newTestApplication()
	resume := "https://cdn.example.com/resume.pdf"
	profile := &StudentProfile{
		CollegeName: "IIT Delhi",
		City:        "New Delhi",
		Skills:      pq.StringArray{"Go", "PostgreSQL"},
		ResumeURL:   &resume,
	}
	now := time.Now()

	a.SnapshotStudent(profile, "Asha Verma", now)
	assert.Equal(t, "Asha Verma", a.StudentName)
	assert.Equal(t, "IIT Delhi", a.StudentCollege)
	assert.Equal(t, resume, a.StudentResumeURL)
	assert.Equal(t, now, a.SnapshotAt)

	// Later profile edits must not leak into the snapshot.
	profile.Skills[0] = "Rust"
	profile.CollegeName = "Somewhere Else"
	assert.Equal(t, pq.StringArray{"Go", "PostgreSQL"}, a.StudentSkills)
	assert.Equal(t, "IIT Delhi", a.StudentCollege)
}
