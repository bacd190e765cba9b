package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func WorkspaceRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	workspace := api.Group("/workspace/:id", middleware.Protected())
	workspace.Get("/submissions", handlers.GetSubmissions)
	workspace.Get("/messages", handlers.GetWorkspaceMessages)
	workspace.Post("/messages", handlers.PostWorkspaceMessage)

	workspace.Post("/start", middleware.StudentRequired(), handlers.StartWork)
	workspace.Post("/submit", middleware.StudentRequired(), handlers.SubmitWork)

	workspace.Post("/approve", middleware.CompanyRequired(), handlers.ApproveWork)
	workspace.Post("/request-revision", middleware.CompanyRequired(), handlers.RequestRevision)
	workspace.Post("/reject", middleware.CompanyRequired(), handlers.RejectWork)
}
