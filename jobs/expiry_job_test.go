package jobs

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		DisableNestedTransaction:                 true,
	})
	require.NoError(t, err)
	database.DB = db
	database.Migrate()
}

func seedProject(t *testing.T, status string, deadline time.Time, assigned *uuid.UUID) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:                  uuid.New(),
		CompanyID:           uuid.New(),
		CreatedBy:           uuid.New(),
		Title:               "Expiry sweep test project",
		Description:         "Covers the deadline cascade.",
		Category:            "Web Development",
		RequiredSkills:      []string{"Go"},
		BudgetMin:           1000,
		BudgetMax:           2000,
		ProjectDuration:     "2 weeks",
		Deadline:            deadline,
		Status:              status,
		AssignedStudentID:   assigned,
		MaxRevisionsAllowed: models.DefaultMaxRevisions,
		LastActivity:        time.Now(),
	}
	require.NoError(t, database.DB.Create(project).Error)
	return project
}

func seedApplication(t *testing.T, project *models.Project, status string) *models.Application {
	t.Helper()
	app := &models.Application{
		ID:            uuid.New(),
		ProjectID:     project.ID,
		StudentID:     uuid.New(),
		CompanyID:     project.CompanyID,
		CoverLetter:   "I can take this on before the new deadline if it reopens.",
		ProposedPrice: 1200,
		EstimatedTime: "2 weeks",
		Status:        status,
		AppliedAt:     time.Now(),
		SnapshotAt:    time.Now(),
	}
	require.NoError(t, database.DB.Create(app).Error)
	return app
}

func TestCloseExpiredProjectsCascade(t *testing.T) {
	openTestDB(t)

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	studentID := uuid.New()

	expired := seedProject(t, models.ProjectStatusOpen, past, nil)
	pending := seedApplication(t, expired, models.ApplicationStatusPending)
	shortlisted := seedApplication(t, expired, models.ApplicationStatusShortlisted)
	alreadyRejected := seedApplication(t, expired, models.ApplicationStatusRejected)

	// Assigned projects keep running past their posting deadline, and open
	// projects with time left are untouched.
	assigned := seedProject(t, models.ProjectStatusAssigned, past, &studentID)
	fresh := seedProject(t, models.ProjectStatusOpen, future, nil)

	CloseExpiredProjects()

	var got models.Project
	require.NoError(t, database.DB.First(&got, "id = ?", expired.ID).Error)
	assert.Equal(t, models.ProjectStatusClosed, got.Status)
	require.NotNil(t, got.ClosedReason)
	assert.Equal(t, models.RejectionReasonProjectExpired, *got.ClosedReason)
	require.NotNil(t, got.ClosedAt)
	firstClosedAt := *got.ClosedAt

	var apps []models.Application
	require.NoError(t, database.DB.Find(&apps, "project_id = ?", expired.ID).Error)
	byID := map[uuid.UUID]models.Application{}
	for _, a := range apps {
		byID[a.ID] = a
	}
	assert.Equal(t, models.ApplicationStatusRejected, byID[pending.ID].Status)
	assert.Equal(t, models.RejectionReasonProjectExpired, byID[pending.ID].RejectionReason)
	assert.Equal(t, models.ApplicationStatusRejected, byID[shortlisted.ID].Status)
	assert.Equal(t, models.RejectionReasonProjectExpired, byID[shortlisted.ID].RejectionReason)
	// Already-settled applications keep their original reason.
	assert.Empty(t, byID[alreadyRejected.ID].RejectionReason)

	require.NoError(t, database.DB.First(&got, "id = ?", assigned.ID).Error)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)
	require.NoError(t, database.DB.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.ProjectStatusOpen, got.Status)

	// Re-running the sweep is a no-op for already-closed projects.
	CloseExpiredProjects()
	require.NoError(t, database.DB.First(&got, "id = ?", expired.ID).Error)
	assert.Equal(t, models.ProjectStatusClosed, got.Status)
	assert.WithinDuration(t, firstClosedAt, *got.ClosedAt, time.Second)
}
