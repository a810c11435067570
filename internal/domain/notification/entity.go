// internal/domain/notification/entity.go
package notification

import (
	"time"
)

// Notification is an in-app message delivered to a buyer or seller,
// produced by the outbox dispatcher from domain events.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RecipientID   uint      `gorm:"not null;index" json:"recipient_id"`
	RecipientRole string    `gorm:"size:20;not null" json:"recipient_role"` // BUYER or SELLER
	Title         string    `gorm:"not null;size:255" json:"title"`
	Message       string    `gorm:"not null;size:500" json:"message"`
	Data          string    `gorm:"type:text" json:"data,omitempty"` // JSON event payload
	IsRead        bool      `gorm:"default:false" json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Notification) TableName() string {
	return "notifications"
}
