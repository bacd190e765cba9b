package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	config "github.com/seribro/backend/configs"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockProject loads the project row under FOR UPDATE. Every multi-row state
// transition takes this lock first so concurrent decisions serialize on it.
func lockProject(tx *gorm.DB, id uuid.UUID, out *models.Project) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(out, "id = ?", id).Error
}

// domainError maps state machine failures to HTTP statuses. Guard failures
// and concurrency losses are conflicts, bad input is a 400, neither is a
// server error.
func domainError(c *fiber.Ctx, err error) error {
	var transition *models.InvalidTransitionError
	var revisionLimit *models.RevisionLimitError
	switch {
	case errors.As(err, &transition),
		errors.As(err, &revisionLimit),
		errors.Is(err, models.ErrProjectAlreadyAssigned),
		errors.Is(err, models.ErrAlreadyApplied),
		errors.Is(err, models.ErrPaymentAlreadyLinked),
		errors.Is(err, models.ErrRevisionsNotExhausted),
		errors.Is(err, models.ErrRatingWindowClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrDeadlinePassed),
		errors.Is(err, models.ErrNoAssignedStudent),
		errors.Is(err, models.ErrOrderMismatch),
		errors.Is(err, models.ErrRefundReasonTooShort),
		errors.Is(err, models.ErrRefundTooLarge),
		errors.Is(err, models.ErrRatingOutOfRange),
		errors.Is(err, models.ErrReviewTooLong):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func companyProfileFor(userID uuid.UUID) (*models.CompanyProfile, error) {
	var profile models.CompanyProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func studentProfileFor(userID uuid.UUID) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

type CreateProjectRequest struct {
	Title           string   `json:"title" validate:"required,max=100"`
	Description     string   `json:"description" validate:"required"`
	Category        string   `json:"category" validate:"required"`
	RequiredSkills  []string `json:"required_skills" validate:"required,min=1"`
	BudgetMin       float64  `json:"budget_min" validate:"gte=0"`
	BudgetMax       float64  `json:"budget_max" validate:"gte=0"`
	ProjectDuration string   `json:"project_duration" validate:"required"`
	Deadline        string   `json:"deadline" validate:"required"`
}

func CreateProject(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		if deadline, err = time.Parse("2006-01-02", req.Deadline); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deadline format, use RFC3339 or YYYY-MM-DD"})
		}
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	now := time.Now()
	project := models.Project{
		CompanyID:           company.ID,
		CreatedBy:           userID,
		Title:               req.Title,
		Description:         req.Description,
		Category:            req.Category,
		RequiredSkills:      req.RequiredSkills,
		BudgetMin:           req.BudgetMin,
		BudgetMax:           req.BudgetMax,
		ProjectDuration:     req.ProjectDuration,
		Deadline:            deadline,
		Status:              models.ProjectStatusOpen,
		MaxRevisionsAllowed: config.Int("MAX_SUBMISSION_REVISIONS", models.DefaultMaxRevisions),
		LastActivity:        now,
	}
	if err := project.Validate(now); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := database.DB.Create(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create project"})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// BrowseProjects lists open, unexpired projects for students.
func BrowseProjects(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := database.DB.Model(&models.Project{}).
		Where("status = ? AND deadline > ?", models.ProjectStatusOpen, time.Now())

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if skill := c.Query("skill"); skill != "" {
		query = query.Where("? = ANY(required_skills)", skill)
	}

	var total int64
	query.Count(&total)

	var projects []models.Project
	if err := query.Preload("Company").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&projects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch projects"})
	}

	return c.JSON(fiber.Map{
		"projects": projects,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func GetCompanyProjects(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	query := database.DB.Where("company_id = ?", company.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var projects []models.Project
	if err := query.Preload("AssignedStudent").Order("created_at DESC").Find(&projects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch projects"})
	}
	return c.JSON(fiber.Map{"projects": projects})
}

func GetProject(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project models.Project
	if err := database.DB.
		Preload("Company").
		Preload("AssignedStudent").
		Preload("Submissions", func(db *gorm.DB) *gorm.DB { return db.Order("version ASC") }).
		First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	return c.JSON(project)
}

// CancelProject lets a company withdraw a project before work has started.
// Open applications are rejected so applicants are not left waiting.
func CancelProject(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var project models.Project
	var rejected []models.Application
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := project.Cancel(); err != nil {
			return err
		}

		now := time.Now()
		var openApps []models.Application
		if err := tx.Where("project_id = ? AND status IN ?", project.ID,
			[]string{models.ApplicationStatusPending, models.ApplicationStatusShortlisted}).
			Find(&openApps).Error; err != nil {
			return err
		}
		for i := range openApps {
			if err := openApps[i].Reject("Project has been cancelled by the company", now); err != nil {
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
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only cancel your own projects"})
		}
		return domainError(c, err)
	}

	for i := range rejected {
		var student models.StudentProfile
		if err := database.DB.First(&student, "id = ?", rejected[i].StudentID).Error; err == nil {
			notifications.Notify(student.UserID, "student",
				"The project '"+project.Title+"' has been cancelled by the company.",
				"application_rejected", "project", &project.ID)
		}
	}

	return c.JSON(fiber.Map{"message": "Project cancelled", "project": project})
}
