package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openTestDB points the handlers at the database named by TEST_DATABASE_URL.
// Tests that exercise multi-row queries need a real postgres (partial indexes,
// text[] columns, row locks); they skip when none is available.
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

// asUser injects a parsed token the way the JWT middleware would, so handlers
// can be exercised without minting real tokens.
func asUser(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userID.String(),
			"role":    role,
		})
		c.Locals("user", token)
		return c.Next()
	}
}

func seedUser(t *testing.T, role string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		FullName: "Test " + role,
		Email:    uuid.NewString() + "@example.test",
		Password: "not-a-real-hash",
		Role:     role,
	}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func seedCompany(t *testing.T) (*models.User, *models.CompanyProfile) {
	t.Helper()
	user := seedUser(t, "company")
	profile := &models.CompanyProfile{ID: uuid.New(), UserID: user.ID, CompanyName: "Acme Test Co"}
	require.NoError(t, database.DB.Create(profile).Error)
	return user, profile
}

func seedStudent(t *testing.T) (*models.User, *models.StudentProfile) {
	t.Helper()
	user := seedUser(t, "student")
	profile := &models.StudentProfile{ID: uuid.New(), UserID: user.ID, CollegeName: "Test College"}
	require.NoError(t, database.DB.Create(profile).Error)
	return user, profile
}

func seedOpenProject(t *testing.T, company *models.CompanyProfile, createdBy uuid.UUID) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:                  uuid.New(),
		CompanyID:           company.ID,
		CreatedBy:           createdBy,
		Title:               "Integration test project",
		Description:         "Exercises the selection fan-out end to end.",
		Category:            "Web Development",
		RequiredSkills:      []string{"Go"},
		BudgetMin:           1000,
		BudgetMax:           2000,
		ProjectDuration:     "2 weeks",
		Deadline:            time.Now().Add(7 * 24 * time.Hour),
		Status:              models.ProjectStatusOpen,
		MaxRevisionsAllowed: models.DefaultMaxRevisions,
		LastActivity:        time.Now(),
	}
	require.NoError(t, database.DB.Create(project).Error)
	return project
}

func seedApplication(t *testing.T, project *models.Project, student *models.StudentProfile, status string) *models.Application {
	t.Helper()
	app := &models.Application{
		ID:            uuid.New(),
		ProjectID:     project.ID,
		StudentID:     student.ID,
		CompanyID:     project.CompanyID,
		CoverLetter:   "I have shipped several projects just like this one before.",
		ProposedPrice: 1500,
		EstimatedTime: "2 weeks",
		Status:        status,
		AppliedAt:     time.Now(),
		SnapshotAt:    time.Now(),
	}
	require.NoError(t, database.DB.Create(app).Error)
	return app
}

func TestApproveApplicationSettlesSiblings(t *testing.T) {
	openTestDB(t)

	companyUser, company := seedCompany(t)
	_, winner := seedStudent(t)
	_, runnerUp := seedStudent(t)
	_, shortlisted := seedStudent(t)
	_, quitter := seedStudent(t)

	project := seedOpenProject(t, company, companyUser.ID)
	winning := seedApplication(t, project, winner, models.ApplicationStatusPending)
	losing := seedApplication(t, project, runnerUp, models.ApplicationStatusPending)
	losingShortlisted := seedApplication(t, project, shortlisted, models.ApplicationStatusShortlisted)
	withdrawn := seedApplication(t, project, quitter, models.ApplicationStatusWithdrawn)

	app := fiber.New()
	app.Post("/applications/:id/approve", asUser(companyUser.ID, "company"), ApproveApplication)

	resp, err := app.Test(httptest.NewRequest("POST", "/applications/"+winning.ID.String()+"/approve", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Project
	require.NoError(t, database.DB.First(&got, "id = ?", project.ID).Error)
	assert.Equal(t, models.ProjectStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedStudentID)
	assert.Equal(t, winner.ID, *got.AssignedStudentID)

	var apps []models.Application
	require.NoError(t, database.DB.Find(&apps, "project_id = ?", project.ID).Error)
	statuses := map[uuid.UUID]models.Application{}
	for _, a := range apps {
		statuses[a.ID] = a
	}
	assert.Equal(t, models.ApplicationStatusAccepted, statuses[winning.ID].Status)
	assert.Equal(t, models.ApplicationStatusRejected, statuses[losing.ID].Status)
	assert.Equal(t, models.RejectionReasonCandidateSelected, statuses[losing.ID].RejectionReason)
	assert.Equal(t, models.ApplicationStatusRejected, statuses[losingShortlisted.ID].Status)
	assert.Equal(t, models.RejectionReasonCandidateSelected, statuses[losingShortlisted.ID].RejectionReason)
	// Withdrawn applications were already settled by the student.
	assert.Equal(t, models.ApplicationStatusWithdrawn, statuses[withdrawn.ID].Status)

	// A second approval on the same project loses to the assignment guard.
	resp, err = app.Test(httptest.NewRequest("POST", "/applications/"+losing.ID.String()+"/approve", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func razorpaySignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentRequiresProjectOwner(t *testing.T) {
	openTestDB(t)
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_test_secret")

	ownerUser, owner := seedCompany(t)
	intruderUser, _ := seedCompany(t)
	_, student := seedStudent(t)

	project := seedOpenProject(t, owner, ownerUser.ID)
	require.NoError(t, database.DB.Model(project).Updates(map[string]interface{}{
		"status":              models.ProjectStatusAssigned,
		"assigned_student_id": student.ID,
	}).Error)

	payment := models.NewPayment(project.ID, owner.ID, student.ID, 1000, 7)
	orderID := "order_" + uuid.NewString()
	payment.GatewayOrderID = &orderID
	require.NoError(t, database.DB.Create(payment).Error)

	body, _ := json.Marshal(fiber.Map{
		"project_id":          project.ID.String(),
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_test_123",
		"razorpay_signature":  razorpaySignature(orderID, "pay_test_123", "rzp_test_secret"),
	})

	verifyAs := func(userID uuid.UUID) *fiber.App {
		app := fiber.New()
		app.Post("/payments/verify", asUser(userID, "company"), VerifyPayment)
		return app
	}

	// A different company cannot capture someone else's escrow.
	req := httptest.NewRequest("POST", "/payments/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := verifyAs(intruderUser.ID).Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var unchanged models.Payment
	require.NoError(t, database.DB.First(&unchanged, "id = ?", payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, unchanged.Status)

	// The owning company goes through.
	req = httptest.NewRequest("POST", "/payments/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = verifyAs(ownerUser.ID).Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var captured models.Payment
	require.NoError(t, database.DB.First(&captured, "id = ?", payment.ID).Error)
	assert.Equal(t, models.PaymentStatusCaptured, captured.Status)

	var credited models.StudentProfile
	require.NoError(t, database.DB.First(&credited, "id = ?", student.ID).Error)
	assert.Equal(t, payment.NetAmount, credited.PendingPayments)
}
