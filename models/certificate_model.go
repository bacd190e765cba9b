package models

import (
	"time"

	"github.com/google/uuid"
)

type Certificate struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID      uuid.UUID `gorm:"not null;unique" json:"project_id"`
	StudentID      uuid.UUID `gorm:"not null;index" json:"student_id"`
	CompanyID      uuid.UUID `gorm:"not null" json:"company_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	CertificateURL string    `gorm:"size:500;not null" json:"certificate_url"`
	IssuedAt       time.Time `gorm:"not null" json:"issued_at"`
}
