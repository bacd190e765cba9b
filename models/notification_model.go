package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID   uuid.UUID `gorm:"not null;index" json:"user_id"`
	UserRole string    `gorm:"size:20;not null" json:"user_role"`
	Message  string    `gorm:"type:text;not null" json:"message"`
	Type     string    `gorm:"size:50;not null" json:"type"`
	IsRead   bool      `gorm:"default:false" json:"is_read"`

	RelatedEntityType *string    `gorm:"size:30" json:"related_entity_type"`
	RelatedEntityID   *uuid.UUID `json:"related_entity_id"`

	CreatedAt time.Time `json:"created_at"`
}
