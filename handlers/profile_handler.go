package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
)

type UpdateStudentProfileRequest struct {
	CollegeName  string   `json:"college_name,omitempty"`
	City         string   `json:"city,omitempty"`
	Course       string   `json:"course,omitempty"`
	YearOfStudy  string   `json:"year_of_study,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	ResumeURL    *string  `json:"resume_url,omitempty"`
	PortfolioURL *string  `json:"portfolio_url,omitempty"`
}

func UpdateStudentProfile(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req UpdateStudentProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	var profile models.StudentProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student profile not found"})
	}

	if req.CollegeName != "" {
		profile.CollegeName = req.CollegeName
	}
	if req.City != "" {
		profile.City = req.City
	}
	if req.Course != "" {
		profile.Course = req.Course
	}
	if req.YearOfStudy != "" {
		profile.YearOfStudy = req.YearOfStudy
	}
	if req.Skills != nil {
		profile.Skills = pq.StringArray(req.Skills)
	}
	if req.Bio != "" {
		profile.Bio = req.Bio
	}
	if req.ResumeURL != nil {
		profile.ResumeURL = req.ResumeURL
	}
	if req.PortfolioURL != nil {
		profile.PortfolioURL = req.PortfolioURL
	}

	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(profile)
}

type UpdateCompanyProfileRequest struct {
	CompanyName string  `json:"company_name,omitempty"`
	Industry    string  `json:"industry,omitempty"`
	Website     *string `json:"website,omitempty"`
	City        string  `json:"city,omitempty"`
	About       string  `json:"about,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

func UpdateCompanyProfile(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var req UpdateCompanyProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	var profile models.CompanyProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company profile not found"})
	}

	if req.CompanyName != "" {
		profile.CompanyName = req.CompanyName
	}
	if req.Industry != "" {
		profile.Industry = req.Industry
	}
	if req.Website != nil {
		profile.Website = req.Website
	}
	if req.City != "" {
		profile.City = req.City
	}
	if req.About != "" {
		profile.About = req.About
	}
	if req.LogoURL != nil {
		profile.LogoURL = req.LogoURL
	}

	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(profile)
}
