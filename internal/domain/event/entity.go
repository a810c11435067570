// internal/domain/event/entity.go
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type identifies a domain event kind
type Type string

const (
	OrderPlaced        Type = "ORDER_PLACED"
	OrderStatusUpdated Type = "ORDER_STATUS_UPDATED"
	OrderReviewed      Type = "ORDER_REVIEWED"
)

// OutboxEvent is a domain event appended inside the same transaction as the
// state change that produced it, and drained asynchronously by the outbox
// dispatcher. Failures in downstream consumers never affect the producing
// request.
type OutboxEvent struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Type        Type       `gorm:"size:50;not null;index" json:"type"`
	Payload     string     `gorm:"type:text;not null" json:"payload"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	ProcessedAt *time.Time `gorm:"index" json:"processed_at"`
}

// TableName overrides the table name
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// OrderPlacedPayload is carried by ORDER_PLACED events
type OrderPlacedPayload struct {
	OrderID uint `json:"order_id"`
}

// OrderStatusUpdatedPayload is carried by ORDER_STATUS_UPDATED events
type OrderStatusUpdatedPayload struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

// OrderReviewedPayload is carried by ORDER_REVIEWED events
type OrderReviewedPayload struct {
	OrderID  uint `json:"order_id"`
	ReviewID uint `json:"review_id"`
}

// Append writes an event row using the given transaction handle so the event
// commits or rolls back together with the producing state change.
func Append(tx *gorm.DB, eventType Type, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	evt := OutboxEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   string(data),
		CreatedAt: time.Now().UTC(),
	}
	return tx.Create(&evt).Error
}
