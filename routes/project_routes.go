package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func ProjectRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	projects := api.Group("/projects", middleware.Protected())
	projects.Get("/browse", middleware.StudentRequired(), handlers.BrowseProjects)
	projects.Get("/:id", handlers.GetProject)

	company := api.Group("/company/projects", middleware.Protected(), middleware.CompanyRequired())
	company.Post("", handlers.CreateProject)
	company.Get("", handlers.GetCompanyProjects)
	company.Post("/:id/cancel", handlers.CancelProject)
	company.Get("/:id/applications", handlers.GetProjectApplications)
	company.Get("/:id/applications/stats", handlers.GetApplicationStats)
}
