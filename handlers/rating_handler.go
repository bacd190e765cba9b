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

type RateRequest struct {
	Score  int    `json:"score" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=1000"`
}

// loadOrStartRating finds the project's rating row, creating an empty one on
// first use. One row per project; the unique index backstops races.
func loadOrStartRating(tx *gorm.DB, projectID uuid.UUID, rating *models.Rating) error {
	err := tx.Where("project_id = ?", projectID).First(rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*rating = models.Rating{ID: uuid.New(), ProjectID: projectID}
		return nil
	}
	return err
}

// RateStudent records the company's post-completion rating of the assigned
// student. Allowed once the project is completed; the score can be revised
// within the edit window.
func RateStudent(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req RateRequest
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

	var project models.Project
	var rating models.Rating
	var student models.StudentProfile
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if project.Status != models.ProjectStatusCompleted {
			return &models.InvalidTransitionError{Entity: "project", Current: project.Status, Required: models.ProjectStatusCompleted}
		}

		if err := loadOrStartRating(tx, project.ID, &rating); err != nil {
			return err
		}
		first, err := rating.RateByCompany(req.Score, req.Review, userID, time.Now())
		if err != nil {
			return err
		}
		if err := tx.Save(&rating).Error; err != nil {
			return err
		}

		if err := tx.First(&student, "id = ?", *project.AssignedStudentID).Error; err != nil {
			return err
		}
		if first {
			student.RecordRating(req.Score)
			if err := tx.Save(&student).Error; err != nil {
				return err
			}
		}

		if rating.BothRated && !project.RatingCompleted {
			project.RatingCompleted = true
			return tx.Save(&project).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only rate your own projects"})
		}
		return domainError(c, err)
	}

	notifications.Notify(student.UserID, "student",
		"The company rated your work on '"+project.Title+"'",
		"rating_received", "project", &project.ID)

	return c.JSON(fiber.Map{
		"message":        "Rating submitted",
		"rating":         rating,
		"average_rating": student.AverageRating,
	})
}

// RateCompany records the assigned student's post-completion rating of the
// company.
func RateCompany(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req RateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	student, err := studentProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	var project models.Project
	var rating models.Rating
	var companyProfile models.CompanyProfile
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.AssignedStudentID == nil || *project.AssignedStudentID != student.ID {
			return errNotYourProject
		}
		if project.Status != models.ProjectStatusCompleted {
			return &models.InvalidTransitionError{Entity: "project", Current: project.Status, Required: models.ProjectStatusCompleted}
		}

		if err := loadOrStartRating(tx, project.ID, &rating); err != nil {
			return err
		}
		first, err := rating.RateByStudent(req.Score, req.Review, userID, time.Now())
		if err != nil {
			return err
		}
		if err := tx.Save(&rating).Error; err != nil {
			return err
		}

		if err := tx.First(&companyProfile, "id = ?", project.CompanyID).Error; err != nil {
			return err
		}
		if first {
			companyProfile.RecordRating(req.Score)
			if err := tx.Save(&companyProfile).Error; err != nil {
				return err
			}
		}

		if rating.BothRated && !project.RatingCompleted {
			project.RatingCompleted = true
			return tx.Save(&project).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only rate projects you worked on"})
		}
		return domainError(c, err)
	}

	notifications.Notify(companyProfile.UserID, "company",
		"The student rated your company on '"+project.Title+"'",
		"rating_received", "project", &project.ID)

	return c.JSON(fiber.Map{
		"message":        "Rating submitted",
		"rating":         rating,
		"average_rating": companyProfile.AverageRating,
	})
}

// GetProjectRating returns both sides of a project's rating. No rating yet is
// not an error.
func GetProjectRating(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var rating models.Rating
	if err := database.DB.Where("project_id = ?", projectID).First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{
				"rating":             nil,
				"has_company_rating": false,
				"has_student_rating": false,
				"both_rated":         false,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rating"})
	}

	return c.JSON(fiber.Map{
		"rating":             rating,
		"has_company_rating": rating.ByCompany.RatedAt != nil,
		"has_student_rating": rating.ByStudent.RatedAt != nil,
		"both_rated":         rating.BothRated,
	})
}

// GetMyRatings lists the ratings the caller has received, newest first, with
// the profile average.
func GetMyRatings(c *fiber.Ctx) error {
	userID, role := currentUser(c)

	var ratings []models.Rating
	received := make([]fiber.Map, 0)

	switch role {
	case "student":
		student, err := studentProfileFor(userID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
		}
		if err := database.DB.
			Joins("JOIN projects ON projects.id = ratings.project_id").
			Where("projects.assigned_student_id = ? AND ratings.company_rated_at IS NOT NULL", student.ID).
			Order("ratings.company_rated_at DESC").
			Preload("Project").
			Find(&ratings).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ratings"})
		}
		for i := range ratings {
			received = append(received, fiber.Map{
				"project_id":    ratings[i].ProjectID,
				"project_title": ratings[i].Project.Title,
				"score":         ratings[i].ByCompany.Score,
				"review":        ratings[i].ByCompany.Review,
				"rated_at":      ratings[i].ByCompany.RatedAt,
			})
		}
		return c.JSON(fiber.Map{
			"ratings":        received,
			"total_ratings":  student.TotalRatings,
			"average_rating": student.AverageRating,
		})

	case "company":
		company, err := companyProfileFor(userID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
		}
		if err := database.DB.
			Joins("JOIN projects ON projects.id = ratings.project_id").
			Where("projects.company_id = ? AND ratings.student_rated_at IS NOT NULL", company.ID).
			Order("ratings.student_rated_at DESC").
			Preload("Project").
			Find(&ratings).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ratings"})
		}
		for i := range ratings {
			received = append(received, fiber.Map{
				"project_id":    ratings[i].ProjectID,
				"project_title": ratings[i].Project.Title,
				"score":         ratings[i].ByStudent.Score,
				"review":        ratings[i].ByStudent.Review,
				"rated_at":      ratings[i].ByStudent.RatedAt,
			})
		}
		return c.JSON(fiber.Map{
			"ratings":        received,
			"total_ratings":  company.TotalRatings,
			"average_rating": company.AverageRating,
		})
	}

	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only students and companies receive ratings"})
}
