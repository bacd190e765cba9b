package jobs

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CloseExpiredProjects sweeps open, unassigned projects whose deadline has
// passed: the project is closed and every open application on it is rejected.
// Each project is handled in its own transaction so one failure never blocks
// the rest of the sweep. Re-running is safe: closed projects no longer match.
func CloseExpiredProjects() {
	log.Println("Running job: CloseExpiredProjects...")

	now := time.Now()
	var expired []models.Project
	err := database.DB.
		Where("status = ? AND deadline < ? AND assigned_student_id IS NULL", models.ProjectStatusOpen, now).
		Find(&expired).Error
	if err != nil {
		log.Printf("Error finding expired projects: %v", err)
		return
	}

	if len(expired) == 0 {
		log.Println("No expired projects found.")
		return
	}

	closed := 0
	for i := range expired {
		if err := closeExpiredProject(expired[i].ID, now); err != nil {
			log.Printf("🔥 Failed to close expired project %s: %v", expired[i].ID, err)
			continue
		}
		closed++
	}

	log.Printf("✅ Closed %d expired project(s).", closed)
}

func closeExpiredProject(projectID uuid.UUID, now time.Time) error {
	var project models.Project
	var rejected []models.Application

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&project, "id = ?", projectID).Error; err != nil {
			return err
		}

		// A concurrent accept may have won between the sweep query and the
		// lock; the guard makes this a no-op in that case.
		if err := project.Close(models.RejectionReasonProjectExpired, now); err != nil {
			return err
		}

		var openApps []models.Application
		if err := tx.Where("project_id = ? AND status IN ?", project.ID,
			[]string{models.ApplicationStatusPending, models.ApplicationStatusShortlisted}).
			Find(&openApps).Error; err != nil {
			return err
		}
		for i := range openApps {
			if err := openApps[i].Reject(models.RejectionReasonProjectExpired, now); err != nil {
				return err
			}
			if err := tx.Save(&openApps[i]).Error; err != nil {
				return err
			}
		}
		rejected = openApps

		return tx.Save(&project).Error
	})
	if err != nil {
		return err
	}

	var company models.CompanyProfile
	if err := database.DB.First(&company, "id = ?", project.CompanyID).Error; err == nil {
		notifications.Notify(company.UserID, "company",
			"Your project '"+project.Title+"' was closed because its deadline expired.",
			"project_expired", "project", &project.ID)
	}
	for i := range rejected {
		var student models.StudentProfile
		if err := database.DB.First(&student, "id = ?", rejected[i].StudentID).Error; err == nil {
			notifications.Notify(student.UserID, "student",
				models.RejectionReasonProjectExpired,
				"application_rejected", "application", &rejected[i].ID)
		}
	}

	return nil
}
