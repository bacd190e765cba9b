package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/seribro/backend/configs"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/notifications"
)

// GenerateCompletionCertificate issues a PDF certificate once a project's
// payment has been released. Safe to call more than once per project: the
// unique project_id on certificates and the early existence check make
// repeats a no-op.
func GenerateCompletionCertificate(projectID uuid.UUID) {
	var project models.Project
	if err := database.DB.Preload("Company").First(&project, "id = ?", projectID).Error; err != nil {
		log.Printf("🔥 Certificate: project %s not found: %v", projectID, err)
		return
	}
	if project.Status != models.ProjectStatusCompleted || project.AssignedStudentID == nil {
		return
	}

	var existing models.Certificate
	if err := database.DB.Where("project_id = ?", project.ID).First(&existing).Error; err == nil {
		return
	}

	var student models.StudentProfile
	if err := database.DB.Preload("User").First(&student, "id = ?", *project.AssignedStudentID).Error; err != nil {
		log.Printf("🔥 Certificate: student profile %s not found: %v", *project.AssignedStudentID, err)
		return
	}

	htmlData, err := renderCertificateHTML(student.User.FullName, project.Company.CompanyName, project.Title, *project.CompletedAt)
	if err != nil {
		log.Printf("🔥 Failed to render certificate HTML: %v", err)
		return
	}

	pdfBytes, err := printPDF(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to generate certificate PDF: %v", err)
		return
	}

	uploadURL, err := uploadCertificate(pdfBytes, student.ID.String())
	if err != nil {
		log.Printf("🔥 Failed to upload certificate: %v", err)
		return
	}

	certificate := models.Certificate{
		ProjectID:      project.ID,
		StudentID:      student.ID,
		CompanyID:      project.CompanyID,
		Title:          project.Title,
		CertificateURL: uploadURL,
		IssuedAt:       time.Now(),
	}
	if err := database.DB.Create(&certificate).Error; err != nil {
		log.Printf("🔥 Failed to create certificate record for project %s: %v", project.ID, err)
		return
	}

	notifications.Notify(student.UserID, "student",
		"Your completion certificate for '"+project.Title+"' is ready!",
		"certificate_issued", "certificate", &certificate.ID)
	log.Printf("✅ Issued completion certificate for project %s.", project.ID)
}

func renderCertificateHTML(studentName, companyName, projectTitle string, completedAt time.Time) (string, error) {
	tmpl, err := template.ParseFiles("templates/certificate.html")
	if err != nil {
		return "", err
	}

	data := struct {
		StudentName    string
		CompanyName    string
		ProjectTitle   string
		CompletionDate string
	}{
		StudentName:    studentName,
		CompanyName:    companyName,
		ProjectTitle:   projectTitle,
		CompletionDate: completedAt.Format("January 2, 2006"),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func printPDF(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadCertificate(fileBytes []byte, studentID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("certificates/%s_%s", studentID, uuid.New().String()),
		Folder:       "seribro_certificates",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
