package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	config "github.com/seribro/backend/configs"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
	"github.com/seribro/backend/payments"
	"github.com/seribro/backend/services"
	"gorm.io/gorm"
)

type CreateOrderRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
}

// CreatePaymentOrder opens a gateway order so the company can fund escrow up
// front. A missing gateway configuration is not fatal: the payment record is
// kept in pending so the flow can resume once keys are set, or fall back to
// approval-time escrow.
func CreatePaymentOrder(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	projectID, _ := uuid.Parse(req.ProjectID)

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	var payment models.Payment
	var project models.Project
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if project.AssignedStudentID == nil {
			return models.ErrNoAssignedStudent
		}

		err := tx.Where("project_id = ?", project.ID).First(&payment).Error
		if err == nil {
			if payment.Status != models.PaymentStatusPending {
				return models.ErrPaymentAlreadyLinked
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		feePercent := config.Float("PLATFORM_FEE_PERCENTAGE", models.DefaultPlatformFeePercent)
		payment = *models.NewPayment(project.ID, project.CompanyID, *project.AssignedStudentID, project.EscrowAmount(), feePercent)
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := project.LinkPayment(payment.ID, payment.Amount); err != nil {
			return err
		}
		project.SetPaymentStatus(payment.Status)
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only fund your own projects"})
		}
		return domainError(c, err)
	}

	order, err := payments.CreateRazorpayOrder(payment.Amount, project.ID.String(), payment.StudentID.String())
	if err != nil {
		if errors.Is(err, payments.ErrGatewayNotConfigured) {
			log.Println("⚠️ Payment gateway not configured, keeping payment in pending state")
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"message": "Payment recorded. Gateway unavailable, order creation deferred.",
				"payment": payment,
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create payment order: " + err.Error()})
	}

	if err := database.DB.Model(&payment).Update("gateway_order_id", order.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store gateway order"})
	}
	payment.GatewayOrderID = &order.ID

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment, "order": order})
}

type VerifyPaymentRequest struct {
	ProjectID         string `json:"project_id" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment confirms the gateway callback and captures the escrow.
func VerifyPayment(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	projectID, _ := uuid.Parse(req.ProjectID)

	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	valid, err := payments.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment signature"})
	}

	var payment models.Payment
	var project models.Project
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &project); err != nil {
			return err
		}
		if project.CompanyID != company.ID {
			return errNotYourProject
		}
		if err := tx.Where("project_id = ?", project.ID).First(&payment).Error; err != nil {
			return err
		}
		if err := payment.BelongsToOrder(req.RazorpayOrderID); err != nil {
			return err
		}

		if err := payment.Capture(&userID, req.RazorpayPaymentID, req.RazorpaySignature, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		// Captured escrow counts toward the student's pending earnings.
		var student models.StudentProfile
		if err := tx.First(&student, "id = ?", payment.StudentID).Error; err != nil {
			return err
		}
		student.AddPendingEarnings(payment.NetAmount)
		if err := tx.Save(&student).Error; err != nil {
			return err
		}

		project.SetPaymentStatus(payment.Status)
		return tx.Save(&project).Error
	})
	if err != nil {
		if errors.Is(err, errNotYourProject) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only verify payments for your own projects"})
		}
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.First(&student, "id = ?", payment.StudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Payment for '"+project.Title+"' has been secured in escrow.",
			"payment_captured", "payment", &payment.ID)
	}

	return c.JSON(fiber.Map{"message": "Payment captured", "payment": payment})
}

// GetPendingReleases lists escrow waiting for an admin decision.
func GetPendingReleases(c *fiber.Ctx) error {
	var pending []models.Payment
	if err := database.DB.
		Where("status = ?", models.PaymentStatusReadyForRelease).
		Order("updated_at ASC").
		Find(&pending).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pending releases"})
	}
	return c.JSON(fiber.Map{"payments": pending, "count": len(pending)})
}

type ReleaseRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=gateway_payout manual_transfer"`
	Notes  string `json:"notes"`
}

// releasePayment runs the full settlement for one payment: escrow to released,
// net amount to the student's lifetime earnings, gross amount to the company's
// spend, and the project marked fully settled.
func releasePayment(paymentID, adminID uuid.UUID, method, notes string) (*models.Payment, *models.Project, error) {
	var payment models.Payment
	var project models.Project
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if err := lockProject(tx, payment.ProjectID, &project); err != nil {
			return err
		}

		now := time.Now()
		if err := payment.Release(adminID, method, notes, now); err != nil {
			return err
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		var student models.StudentProfile
		if err := tx.First(&student, "id = ?", payment.StudentID).Error; err != nil {
			return err
		}
		student.ReleaseEarnings(payment.NetAmount, now)
		if err := tx.Save(&student).Error; err != nil {
			return err
		}

		var companyProfile models.CompanyProfile
		if err := tx.First(&companyProfile, "id = ?", payment.CompanyID).Error; err != nil {
			return err
		}
		companyProfile.RecordSpend(payment.Amount)
		if err := tx.Save(&companyProfile).Error; err != nil {
			return err
		}

		project.SetPaymentStatus(payment.Status)
		project.Touch(now)
		return tx.Save(&project).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &payment, &project, nil
}

func ReleasePayment(c *fiber.Ctx) error {
	adminID, _ := currentUser(c)
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req ReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		req = ReleaseRequest{}
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, project, err := releasePayment(paymentID, adminID, req.Method, req.Notes)
	if err != nil {
		return domainError(c, err)
	}

	var student models.StudentProfile
	if err := database.DB.Preload("User").First(&student, "id = ?", payment.StudentID).Error; err == nil {
		notifications.Notify(student.UserID, "student",
			"Payment for '"+project.Title+"' has been released to you!",
			"payment_released", "payment", &payment.ID)
		go notifications.SendEmail(student.User.FullName, student.User.Email,
			"Payment released!",
			"<h1>Payment Released</h1><p>Your payment for '"+project.Title+"' is on its way.</p>")
	}
	go services.GenerateCompletionCertificate(project.ID)

	return c.JSON(fiber.Map{"message": "Payment released", "payment": payment})
}

type BulkReleaseRequest struct {
	PaymentIDs []string `json:"payment_ids" validate:"required,min=1"`
	Method     string   `json:"method" validate:"omitempty,oneof=gateway_payout manual_transfer"`
	Notes      string   `json:"notes"`
}

// BulkReleasePayments settles each payment independently and reports per-id
// outcomes; a failed release never blocks the rest of the batch.
func BulkReleasePayments(c *fiber.Ctx) error {
	adminID, _ := currentUser(c)

	var req BulkReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	results := make([]fiber.Map, 0, len(req.PaymentIDs))
	released := 0
	for _, rawID := range req.PaymentIDs {
		paymentID, err := uuid.Parse(rawID)
		if err != nil {
			results = append(results, fiber.Map{"id": rawID, "ok": false, "error": "invalid payment ID"})
			continue
		}

		payment, project, err := releasePayment(paymentID, adminID, req.Method, req.Notes)
		if err != nil {
			results = append(results, fiber.Map{"id": rawID, "ok": false, "error": err.Error()})
			continue
		}

		released++
		results = append(results, fiber.Map{"id": rawID, "ok": true})

		var student models.StudentProfile
		if err := database.DB.First(&student, "id = ?", payment.StudentID).Error; err == nil {
			notifications.Notify(student.UserID, "student",
				"Payment for '"+project.Title+"' has been released to you!",
				"payment_released", "payment", &payment.ID)
		}
		go services.GenerateCompletionCertificate(project.ID)
	}

	return c.JSON(fiber.Map{"released": released, "results": results})
}

type RefundRequest struct {
	Reason string  `json:"reason" validate:"required,min=5"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

func RefundPayment(c *fiber.Ctx) error {
	adminID, _ := currentUser(c)
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payment models.Payment
	var project models.Project
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if err := lockProject(tx, payment.ProjectID, &project); err != nil {
			return err
		}

		wasPendingPayout := payment.Status == models.PaymentStatusCaptured ||
			payment.Status == models.PaymentStatusReadyForRelease
		now := time.Now()
		if err := payment.Refund(adminID, req.Reason, req.Amount, now); err != nil {
			return err
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if wasPendingPayout {
			var student models.StudentProfile
			if err := tx.First(&student, "id = ?", payment.StudentID).Error; err != nil {
				return err
			}
			student.DeductPendingEarnings(payment.NetAmount)
			if err := tx.Save(&student).Error; err != nil {
				return err
			}
		}

		project.SetPaymentStatus(payment.Status)
		return tx.Save(&project).Error
	})
	if err != nil {
		return domainError(c, err)
	}

	var companyProfile models.CompanyProfile
	if err := database.DB.First(&companyProfile, "id = ?", payment.CompanyID).Error; err == nil {
		notifications.Notify(companyProfile.UserID, "company",
			"Payment for '"+project.Title+"' has been refunded: "+req.Reason,
			"payment_refunded", "payment", &payment.ID)
	}

	return c.JSON(fiber.Map{"message": "Payment refunded", "payment": payment})
}

func GetStudentEarnings(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	student, err := studentProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	var released []models.Payment
	if err := database.DB.
		Where("student_id = ? AND status = ?", student.ID, models.PaymentStatusReleased).
		Order("released_at DESC").
		Find(&released).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch earnings"})
	}

	type monthlyEarning struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}
	var monthly []monthlyEarning
	database.DB.Model(&models.Payment{}).
		Select("to_char(released_at, 'YYYY-MM') as month, sum(net_amount) as total").
		Where("student_id = ? AND status = ?", student.ID, models.PaymentStatusReleased).
		Group("month").
		Order("month DESC").
		Scan(&monthly)

	return c.JSON(fiber.Map{
		"total_earned":       student.TotalEarned,
		"pending_payments":   student.PendingPayments,
		"completed_projects": student.CompletedProjects,
		"last_payment_date":  student.LastPaymentDate,
		"monthly":            monthly,
		"payments":           released,
	})
}

// GetPlatformRevenue sums the fee cut across released payments.
func GetPlatformRevenue(c *fiber.Ctx) error {
	type revenue struct {
		TotalRevenue  float64 `json:"total_revenue"`
		TotalReleased float64 `json:"total_released"`
		Count         int64   `json:"count"`
	}
	var rev revenue
	if err := database.DB.Model(&models.Payment{}).
		Select("coalesce(sum(platform_fee), 0) as total_revenue, coalesce(sum(net_amount), 0) as total_released, count(*) as count").
		Where("status = ?", models.PaymentStatusReleased).
		Scan(&rev).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute revenue"})
	}

	var refunded float64
	database.DB.Model(&models.Payment{}).
		Select("coalesce(sum(refund_amount), 0)").
		Where("status = ?", models.PaymentStatusRefunded).
		Scan(&refunded)

	return c.JSON(fiber.Map{
		"total_revenue":  rev.TotalRevenue,
		"total_released": rev.TotalReleased,
		"released_count": rev.Count,
		"total_refunded": refunded,
	})
}

func GetCompanyPayments(c *fiber.Ctx) error {
	userID, _ := currentUser(c)
	company, err := companyProfileFor(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	query := database.DB.Where("company_id = ?", company.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var companyPayments []models.Payment
	if err := query.Order("created_at DESC").Find(&companyPayments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payments"})
	}

	return c.JSON(fiber.Map{
		"payments":    companyPayments,
		"total_spent": company.TotalSpent,
	})
}

// GetPaymentHistory returns the append-only audit trail for one payment.
func GetPaymentHistory(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var payment models.Payment
	if err := database.DB.
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&payment, "id = ?", paymentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	}

	return c.JSON(fiber.Map{"payment": payment, "history": payment.History})
}
