package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
	"gorm.io/gorm"
)

var (
	errNotYourProject     = errors.New("not your project")
	errNotYourApplication = errors.New("not your application")
)

type ApplyRequest struct {
	ProjectID     string  `json:"project_id" validate:"required,uuid"`
	CoverLetter   string  `json:"cover_letter" validate:"required,min=50,max=2000"`
	ProposedPrice float64 `json:"proposed_price" validate:"required,gt=0"`
	EstimatedTime string  `json:"estimated_time" validate:"required"`
}

func ApplyToProject(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	validTime := false
	for _, t := range models.ApplicationEstimatedTimes {
		if t == req.EstimatedTime {
			validTime = true
			break
		}
	}
	if !validTime {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid estimated time"})
	}
	projectID, _ := uuid.Parse(req.ProjectID)

	student, err := studentProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var application models.Application
	var project models.Project
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if err := project.OpenForApplications(time.Now()); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND student_id = ? AND status <> ?",
				project.ID, student.ID, models.ApplicationStatusWithdrawn).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.ErrAlreadyApplied
		}

		now := time.Now()
		application = models.Application{
			ProjectID:     project.ID,
			StudentID:     student.ID,
			CompanyID:     project.CompanyID,
			CoverLetter:   req.CoverLetter,
			ProposedPrice: req.ProposedPrice,
			EstimatedTime: req.EstimatedTime,
			Status:        models.ApplicationStatusPending,
			AppliedAt:     now,
		}
		application.SnapshotStudent(student, user.FullName, now)
		if err := tx.Create(&application).Error; err != nil {
			return err
		}

		project.ApplicationsCount++
		project.Touch(now)
		return tx.Save(&project).Error
	})
	if err != nil {
		return domainError(c, err)
	}

	var company models.CompanyProfile
	if err := database.DB.First(&company, "id = ?", project.CompanyID).Error; err == nil {
		notifications.Notify(company.UserID, "company",
			user.FullName+" applied to your project '"+project.Title+"'",
			"new_application", "application", &application.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(application)
}

func WithdrawApplication(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	student, err := studentProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	var application models.Application
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
			return err
		}
		if application.StudentID != student.ID {
			return errNotYourApplication
		}
		if err := application.Withdraw(time.Now()); err != nil {
			return err
		}
		return tx.Save(&application).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourApplication) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only withdraw your own applications"})
		}
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Application withdrawn", "application": application})
}

func GetMyApplications(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	student, err := studentProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	query := database.DB.Where("student_id = ?", student.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []models.Application
	if err := query.Preload("Project").Order("applied_at DESC").Find(&applications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch applications"})
	}
	return c.JSON(fiber.Map{"applications": applications})
}

// projectOwnedBy loads a project and checks it belongs to the caller's company.
func projectOwnedBy(userID, projectID uuid.UUID) (*models.Project, *models.CompanyProfile, error) {
	company, err := companyProfileFor(userID)
	if err != nil {
		return nil, nil, err
	}
	var project models.Project
	if err := database.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, nil, err
	}
	if project.CompanyID != company.ID {
		return nil, nil, errNotYourProject
	}
	return &project, company, nil
}

func GetProjectApplications(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	project, _, err := projectOwnedBy(userID, projectID)
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only view applications for your own projects"})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}

	query := database.DB.Where("project_id = ?", project.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []models.Application
	if err := query.Order("applied_at ASC").Find(&applications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch applications"})
	}
	return c.JSON(fiber.Map{"applications": applications, "project": project})
}

func GetApplicationStats(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	project, _, err := projectOwnedBy(userID, projectID)
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only view stats for your own projects"})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var counts []statusCount
	if err := database.DB.Model(&models.Application{}).
		Select("status, count(*) as count").
		Where("project_id = ?", project.ID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stats"})
	}

	stats := fiber.Map{"total": int64(0)}
	for _, sc := range counts {
		stats[sc.Status] = sc.Count
		stats["total"] = stats["total"].(int64) + sc.Count
	}
	return c.JSON(stats)
}

func ShortlistApplication(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var application models.Application
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
			return err
		}
		if application.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := application.Shortlist(time.Now()); err != nil {
			return err
		}
		return tx.Save(&application).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only shortlist applications to your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.First(&student, "id = ?", application.StudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Your application has been shortlisted!",
			"application_shortlisted", "application", &application.ID)
	}

	return c.JSON(fiber.Map{"message": "Application shortlisted", "application": application})
}

// ApproveApplication accepts one application and atomically settles the rest:
// the project is assigned to the winner and every other open application is
// rejected in the same transaction. The project row lock makes two concurrent
// approvals impossible.
func ApproveApplication(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var accepted models.Application
	var project models.Project
	var losers []models.Application
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&accepted, "id = ?", applicationID).Error; err != nil {
			return err
		}
		if accepted.CompanyID != company.ID {
			return errNotYourProject
		}

		if err := lockProject(tx, accepted.ProjectID, &project); err != nil {
			return err
		}

		now := time.Now()
		if err := project.Assign(accepted.StudentID); err != nil {
			return err
		}
		if err := accepted.Accept(now); err != nil {
			return err
		}
		if err := tx.Save(&accepted).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ? AND id <> ? AND status IN ?",
			project.ID, accepted.ID,
			[]string{models.ApplicationStatusPending, models.ApplicationStatusShortlisted}).
			Find(&losers).Error; err != nil {
			return err
		}
		for i := range losers {
			if err := losers[i].Reject(models.RejectionReasonCandidateSelected, now); err != nil {
				return err
			}
			if err := tx.Save(&losers[i]).Error; err != nil {
				return err
			}
		}

		project.Touch(now)
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only approve applications to your own projects"})
		}
		return domainError(c, err)
	}

	var winner models.StudentProfile
	if err := database.DB.Preload("User").First(&winner, "id = ?", accepted.StudentID).Error; err == nil {
		notifications.Notify(winner.UserID, "student",
			"Congratulations! You have been selected for the project '"+project.Title+"'",
			"application_accepted", "project", &project.ID)
		go notifications.SendEmail(winner.User.FullName, winner.User.Email,
			"You've been selected!",
			"<h1>Congratulations!</h1><p>You have been selected for the project '"+project.Title+"'. Head to the project workspace to get started.</p>")
	}
	for i := range losers {
		var student models.StudentProfile
		if err := database.DB.First(&student, "id = ?", losers[i].StudentID).Error; err == nil {
			notifications.Notify(student.UserID, "student",
				models.RejectionReasonCandidateSelected,
				"application_rejected", "application", &losers[i].ID)
		}
	}

	return c.JSON(fiber.Map{
		"message":     "Application approved",
		"application": accepted,
		"project":     project,
		"rejected":    len(losers),
	})
}

type RejectApplicationRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

func RejectApplication(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid application ID"})
	}

	var req RejectApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var application models.Application
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
			return err
		}
		if application.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := application.Reject(req.Reason, time.Now()); err != nil {
			return err
		}
		return tx.Save(&application).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only reject applications to your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.First(&student, "id = ?", application.StudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Your application was not selected: "+req.Reason,
			"application_rejected", "application", &application.ID)
	}

	return c.JSON(fiber.Map{"message": "Application rejected", "application": application})
}

type BulkRejectRequest struct {
	ApplicationIDs []string `json:"application_ids" validate:"required,min=1"`
	Reason         string   `json:"reason" validate:"required,min=10,max=500"`
}

// BulkRejectApplications rejects each application independently; one failure
// does not roll back the others.
func BulkRejectApplications(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req BulkRejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	results := make([]fiber.Map, 0, len(req.ApplicationIDs))
	rejected := 0
	for _, rawID := range req.ApplicationIDs {
		applicationID, err := uuid.Parse(rawID)
		if err != nil {
			results = append(results, fiber.Map{"id": rawID, "ok": false, "error": "invalid application ID"})
			continue
		}

		var application models.Application
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
				return err
			}
			if application.CompanyID != company.ID {
				return errNotYourProject
			}
			if err := application.Reject(req.Reason, time.Now()); err != nil {
				return err
			}
			return tx.Save(&application).Error
		})
		if err != nil {
			results = append(results, fiber.Map{"id": rawID, "ok": false, "error": err.Error()})
			continue
		}

		rejected++
		results = append(results, fiber.Map{"id": rawID, "ok": true})

		var student models.StudentProfile
		if err := database.DB.First(&student, "id = ?", application.StudentID).Error; err == nil {
			notifications.Notify(student.UserID, "student",
				"Your application was not selected: "+req.Reason,
				"application_rejected", "application", &application.ID)
		}
	}

	return c.JSON(fiber.Map{"rejected": rejected, "results": results})
}
