package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func RatingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	ratings := api.Group("/ratings", middleware.Protected())
	ratings.Get("/me", handlers.GetMyRatings)
	ratings.Get("/projects/:id", handlers.GetProjectRating)
	ratings.Post("/projects/:id/rate-student", middleware.CompanyRequired(), handlers.RateStudent)
	ratings.Post("/projects/:id/rate-company", middleware.StudentRequired(), handlers.RateCompany)
}
