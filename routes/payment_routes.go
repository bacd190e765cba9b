package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	company := api.Group("/payments", middleware.Protected(), middleware.CompanyRequired())
	company.Post("/create-order", handlers.CreatePaymentOrder)
	company.Post("/verify", handlers.VerifyPayment)
	company.Get("/company", handlers.GetCompanyPayments)

	student := api.Group("/earnings", middleware.Protected(), middleware.StudentRequired())
	student.Get("", handlers.GetStudentEarnings)

	admin := api.Group("/admin/payments", middleware.Protected(), middleware.AdminRequired())
	admin.Get("/pending-releases", handlers.GetPendingReleases)
	admin.Post("/:id/release", handlers.ReleasePayment)
	admin.Post("/:id/refund", handlers.RefundPayment)
	admin.Post("/bulk-release", handlers.BulkReleasePayments)
	admin.Get("/:id/history", handlers.GetPaymentHistory)
	admin.Get("/revenue", handlers.GetPlatformRevenue)
}
