package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/seribro/backend/handlers"
	"github.com/seribro/backend/middleware"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.RegisterUser)
	auth.Post("/login", handlers.LoginUser)

	me := api.Group("/me", middleware.Protected())
	me.Get("", handlers.GetMe)
	me.Put("/student-profile", middleware.StudentRequired(), handlers.UpdateStudentProfile)
	me.Put("/company-profile", middleware.CompanyRequired(), handlers.UpdateCompanyProfile)
}
