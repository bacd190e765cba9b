package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func ApplicationRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	student := api.Group("/applications", middleware.Protected(), middleware.StudentRequired())
	student.Post("", handlers.ApplyToProject)
	student.Get("/me", handlers.GetMyApplications)
	student.Post("/:id/withdraw", handlers.WithdrawApplication)

	company := api.Group("/company/applications", middleware.Protected(), middleware.CompanyRequired())
	company.Post("/:id/shortlist", handlers.ShortlistApplication)
	company.Post("/:id/approve", handlers.ApproveApplication)
	company.Post("/:id/reject", handlers.RejectApplication)
	company.Post("/bulk-reject", handlers.BulkRejectApplications)
}
