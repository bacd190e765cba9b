package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	config "github.com/seribro/backend/configs"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
	"gorm.io/gorm"
)

var errNotAssigned = errors.New("you are not assigned to this project")

// assignedStudentProject checks the caller is the student the project was
// assigned to.
func assignedStudentProject(tx *gorm.DB, userID, projectID uuid.UUID, project *models.Project) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := tx.Where("user_id = ?", userID).First(&student).Error; err != nil {
		return nil, err
	}
	if err := lockProject(tx, projectID, project); err != nil {
		return nil, err
	}
	if project.AssignedStudentID == nil || *project.AssignedStudentID != student.ID {
		return nil, errNotAssigned
	}
	return &student, nil
}

func StartWork(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project models.Project
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := assignedStudentProject(tx, userID, projectID, &project); err != nil {
			return err
		}
		now := time.Now()
		if err := project.StartWork(now); err != nil {
			return err
		}
		project.Touch(now)
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotAssigned) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": errNotAssigned.Error()})
		}
		return domainError(c, err)
	}

	var company models.CompanyProfile
	if err := database.DB.First(&company, "id = ?", project.CompanyID).Error; err == nil {
		notifications.Notify(company.UserID, "company",
			"Work has started on your project '"+project.Title+"'",
			"work_started", "project", &project.ID)
	}

	return c.JSON(fiber.Map{"message": "Work started", "project": project})
}

type SubmitWorkRequest struct {
	Files   []string `json:"files"`
	Links   []string `json:"links"`
	Message string   `json:"message" validate:"required,min=10"`
}

func SubmitWork(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req SubmitWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(req.Files) == 0 && len(req.Links) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "At least one file or link is required"})
	}

	var project models.Project
	var submission *models.Submission
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		student, err := assignedStudentProject(tx, userID, projectID, &project)
		if err != nil {
			return err
		}

		// Versions come from the stored count, not the in-memory slice, so a
		// concurrent submit cannot reuse a number.
		var versions int64
		if err := tx.Model(&models.Submission{}).Where("project_id = ?", project.ID).Count(&versions).Error; err != nil {
			return err
		}
		project.Submissions = make([]models.Submission, versions)

		now := time.Now()
		sub, err := project.SubmitWork(req.Files, req.Links, req.Message, student.ID, now)
		if err != nil {
			return err
		}
		sub.Version = int(versions) + 1
		project.CurrentSubmissionVersion = sub.Version

		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		submission = sub

		project.Submissions = nil
		project.Touch(now)
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotAssigned) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": errNotAssigned.Error()})
		}
		return domainError(c, err)
	}

	var company models.CompanyProfile
	if err := database.DB.Preload("User").First(&company, "id = ?", project.CompanyID).Error; err == nil {
		notifications.Notify(company.UserID, "company",
			"New work submitted on '"+project.Title+"' (version "+strconv.Itoa(submission.Version)+")",
			"work_submitted", "submission", &submission.ID)
		go notifications.SendEmail(company.User.FullName, company.User.Email,
			"Work submitted for review",
			"<h1>Work Submitted</h1><p>A new submission is waiting for your review on '"+project.Title+"'.</p>")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Work submitted", "submission": submission, "project": project})
}

type ReviewRequest struct {
	Feedback string `json:"feedback"`
}

// ApproveWork completes the project and moves its escrow to ready_for_release.
// When no payment was collected up front one is created on the spot so the
// admin release queue always sees completed projects. Re-approval is blocked
// by the project status guard, which keeps the payment creation idempotent.
func ApproveWork(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	// Feedback is optional; an empty body is fine.
	var req ReviewRequest
	_ = c.BodyParser(&req)

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var project models.Project
	var payment models.Payment
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := tx.Where("project_id = ?", project.ID).Order("version ASC").Find(&project.Submissions).Error; err != nil {
			return err
		}

		now := time.Now()
		sub, err := project.ApproveWork(userID, req.Feedback, now)
		if err != nil {
			return err
		}
		if err := tx.Save(sub).Error; err != nil {
			return err
		}

		// Pending earnings follow the capture event: a payment captured up
		// front already credited them, so only the synthesized escrow path
		// credits here.
		feePercent := config.Float("PLATFORM_FEE_PERCENTAGE", models.DefaultPlatformFeePercent)
		err = tx.Where("project_id = ?", project.ID).First(&payment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment = *models.NewPayment(project.ID, project.CompanyID, *project.AssignedStudentID, project.EscrowAmount(), feePercent)
			if err := payment.EscrowOnApproval(&userID, now); err != nil {
				return err
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			if err := project.LinkPayment(payment.ID, payment.Amount); err != nil {
				return err
			}

			var student models.StudentProfile
			if err := tx.First(&student, "id = ?", payment.StudentID).Error; err != nil {
				return err
			}
			student.AddPendingEarnings(payment.NetAmount)
			if err := tx.Save(&student).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if payment.Status == models.PaymentStatusCaptured {
				if err := payment.MarkReadyForRelease(&userID, "Work approved, escrow ready for release", now); err != nil {
					return err
				}
				if err := tx.Save(&payment).Error; err != nil {
					return err
				}
			}
		}
		project.SetPaymentStatus(payment.Status)

		project.Touch(now)
		project.Submissions = nil
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only review your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.Preload("User").First(&student, "id = ?", payment.StudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Your work on '"+project.Title+"' has been approved!",
			"work_approved", "project", &project.ID)
		go notifications.SendEmail(student.User.FullName, student.User.Email,
			"Your work was approved!",
			"<h1>Approved!</h1><p>Your work on '"+project.Title+"' has been approved. Payment will be released shortly.</p>")
	}
	notifications.NotifyAdmins(
		"Payment for project '"+project.Title+"' is ready for release",
		"payment_ready", "payment", &payment.ID)

	return c.JSON(fiber.Map{"message": "Work approved", "project": project, "payment": payment})
}

type RevisionRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

func RequestRevision(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req RevisionRequest
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
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := tx.Where("project_id = ?", project.ID).Order("version ASC").Find(&project.Submissions).Error; err != nil {
			return err
		}

		now := time.Now()
		sub, err := project.RequestRevision(userID, req.Reason, now)
		if err != nil {
			return err
		}
		if err := tx.Save(sub).Error; err != nil {
			return err
		}

		event := models.RevisionEvent{
			ProjectID:   project.ID,
			Version:     sub.Version,
			RequestedBy: userID,
			Reason:      req.Reason,
			RequestedAt: now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		project.Touch(now)
		project.Submissions = nil
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only review your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.First(&student, "id = ?", *project.AssignedStudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Revision requested on '"+project.Title+"' ("+strconv.Itoa(project.RevisionCount)+" of "+strconv.Itoa(project.MaxRevisionsAllowed)+")",
			"revision_requested", "project", &project.ID)
	}

	return c.JSON(fiber.Map{
		"message":             "Revision requested",
		"project":             project,
		"revisions_used":      project.RevisionCount,
		"revisions_remaining": project.MaxRevisionsAllowed - project.RevisionCount,
	})
}

func RejectWork(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req RevisionRequest
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
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := tx.Where("project_id = ?", project.ID).Order("version ASC").Find(&project.Submissions).Error; err != nil {
			return err
		}

		now := time.Now()
		sub, err := project.RejectWork(userID, req.Reason, now)
		if err != nil {
			return err
		}
		if err := tx.Save(sub).Error; err != nil {
			return err
		}

		project.Touch(now)
		project.Submissions = nil
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only review your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.First(&student, "id = ?", *project.AssignedStudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Your work on '"+project.Title+"' was rejected. The project is now under dispute.",
			"work_rejected", "project", &project.ID)
	}
	notifications.NotifyAdmins(
		"Project '"+project.Title+"' is disputed and needs review",
		"project_disputed", "project", &project.ID)

	return c.JSON(fiber.Map{"message": "Work rejected, project disputed", "project": project})
}

func GetSubmissions(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project models.Project
	if err := database.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err := requireWorkspaceMember(userID, &project); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}

	var submissions []models.Submission
	if err := database.DB.Where("project_id = ?", project.ID).Order("version ASC").Find(&submissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch submissions"})
	}

	return c.JSON(fiber.Map{
		"submissions":         submissions,
		"current_version":     project.CurrentSubmissionVersion,
		"revisions_used":      project.RevisionCount,
		"revisions_remaining": project.MaxRevisionsAllowed - project.RevisionCount,
	})
}

// requireWorkspaceMember allows only the owning company user or the assigned
// student into a project workspace.
func requireWorkspaceMember(userID uuid.UUID, project *models.Project) error {
	var company models.CompanyProfile
	if err := database.DB.Where("user_id = ?", userID).First(&company).Error; err == nil {
		if project.CompanyID == company.ID {
			return nil
		}
	}
	var student models.StudentProfile
	if err := database.DB.Where("user_id = ?", userID).First(&student).Error; err == nil {
		if project.AssignedStudentID != nil && *project.AssignedStudentID == student.ID {
			return nil
		}
	}
	return errors.New("you do not have access to this workspace")
}

type PostMessageRequest struct {
	Content     string   `json:"content" validate:"required,min=1,max=5000"`
	Attachments []string `json:"attachments"`
}

func PostWorkspaceMessage(c *fiber.Ctx) error {
	userID, role := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var project models.Project
	if err := database.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err := requireWorkspaceMember(userID, &project); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}

	message := models.WorkspaceMessage{
		ProjectID:   project.ID,
		SenderID:    userID,
		SenderRole:  role,
		Content:     req.Content,
		Attachments: req.Attachments,
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&project).Updates(map[string]interface{}{
			"message_count": gorm.Expr("message_count + 1"),
			"last_activity": time.Now(),
		}).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to post message"})
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

func GetWorkspaceMessages(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project models.Project
	if err := database.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err := requireWorkspaceMember(userID, &project); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}

	var messages []models.WorkspaceMessage
	if err := database.DB.Where("project_id = ?", project.ID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(fiber.Map{"messages": messages})
}
