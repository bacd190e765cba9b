package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WorkspaceMessage is one entry on a project's message board. Only the owning
// company and the assigned student can post.
type WorkspaceMessage struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID      `gorm:"not null;index" json:"project_id"`
	SenderID    uuid.UUID      `gorm:"not null" json:"sender_id"`
	SenderRole  string         `gorm:"size:20;not null" json:"sender_role"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	Attachments pq.StringArray `gorm:"type:text[]" json:"attachments"`

	CreatedAt time.Time `json:"created_at"`
}
