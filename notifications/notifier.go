package notifications

import (
	"log"

	"github.com/google/uuid"
	"github.com/seribro/backend/database"
	"github.com/seribro/backend/models"
	"github.com/seribro/backend/websocket"
)

// Notify records a notification and pushes it to the user if connected.
// Best-effort by contract: failures are logged and must never fail the domain
// transition that triggered them.
func Notify(userID uuid.UUID, userRole, message, notifType, entityType string, entityID *uuid.UUID) {
	notification := models.Notification{
		UserID:   userID,
		UserRole: userRole,
		Message:  message,
		Type:     notifType,
	}
	if entityType != "" {
		notification.RelatedEntityType = &entityType
	}
	notification.RelatedEntityID = entityID

	if err := database.DB.Create(&notification).Error; err != nil {
		log.Printf("🔥 Failed to create notification for user %s: %v", userID, err)
		return
	}

	websocket.Push(&notification)
}

// NotifyAdmins broadcasts to every active admin user rather than picking an
// arbitrary first match.
func NotifyAdmins(message, notifType, entityType string, entityID *uuid.UUID) {
	var admins []models.User
	if err := database.DB.Where("role = ? AND is_active = ?", "admin", true).Find(&admins).Error; err != nil {
		log.Printf("🔥 Failed to load admin users for notification: %v", err)
		return
	}
	if len(admins) == 0 {
		log.Println("⚠️ No admin users found for admin notification")
		return
	}

	for _, admin := range admins {
		Notify(admin.ID, "admin", message, notifType, entityType, entityID)
	}
}
