// internal/domain/notification/service.go
package notification

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles in-app notifications. Rows are produced by the outbox
// dispatcher, never directly by request handlers.
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new notification service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// ListResponse represents the recipient's notifications
type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

// List returns the recipient's notifications, newest first
func (s *Service) List(recipientID uint) (*ListResponse, error) {
	var notifications []Notification
	err := s.db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	var unread int64
	err = s.db.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&unread).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &ListResponse{Notifications: notifications, UnreadCount: unread}, nil
}

// MarkRead marks one notification as read
func (s *Service) MarkRead(recipientID, notificationID uint) error {
	result := s.db.Model(&Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("notification %d not found", notificationID)
	}
	return nil
}

// MarkAllRead marks every notification of the recipient as read
func (s *Service) MarkAllRead(recipientID uint) error {
	err := s.db.Model(&Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// NotifyOrderPlaced fans an order placement out to the buyer and to every
// seller whose products appear on the order.
func (s *Service) NotifyOrderPlaced(orderID uint) error {
	o, sellerIDs, err := s.orderRecipients(orderID)
	if err != nil {
		return err
	}

	notifications := []Notification{{
		RecipientID:   o.UserID,
		RecipientRole: "BUYER",
		Title:         "Order placed",
		Message:       fmt.Sprintf("Your order #%d has been placed and is awaiting payment.", o.ID),
		Data:          orderData(o.ID),
	}}
	for sellerID := range sellerIDs {
		notifications = append(notifications, Notification{
			RecipientID:   sellerID,
			RecipientRole: "SELLER",
			Title:         "New order",
			Message:       fmt.Sprintf("Order #%d includes items from your shop.", o.ID),
			Data:          orderData(o.ID),
		})
	}

	if err := s.db.Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// NotifyOrderStatus fans a status change out to the buyer and the sellers
func (s *Service) NotifyOrderStatus(orderID uint, status string) error {
	o, sellerIDs, err := s.orderRecipients(orderID)
	if err != nil {
		return err
	}

	notifications := []Notification{{
		RecipientID:   o.UserID,
		RecipientRole: "BUYER",
		Title:         "Order update",
		Message:       fmt.Sprintf("Your order #%d is now %s.", o.ID, status),
		Data:          orderData(o.ID),
	}}
	for sellerID := range sellerIDs {
		notifications = append(notifications, Notification{
			RecipientID:   sellerID,
			RecipientRole: "SELLER",
			Title:         "Order update",
			Message:       fmt.Sprintf("Order #%d is now %s.", o.ID, status),
			Data:          orderData(o.ID),
		})
	}

	if err := s.db.Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// NotifyOrderReviewed tells the sellers a review landed on their order
func (s *Service) NotifyOrderReviewed(orderID, reviewID uint) error {
	o, sellerIDs, err := s.orderRecipients(orderID)
	if err != nil {
		return err
	}

	data, _ := json.Marshal(map[string]uint{"order_id": o.ID, "review_id": reviewID})

	var notifications []Notification
	for sellerID := range sellerIDs {
		notifications = append(notifications, Notification{
			RecipientID:   sellerID,
			RecipientRole: "SELLER",
			Title:         "New review",
			Message:       fmt.Sprintf("Order #%d received a review.", o.ID),
			Data:          string(data),
		})
	}
	if len(notifications) == 0 {
		return nil
	}

	if err := s.db.Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// orderRecipients loads the order and the distinct seller user ids behind
// its products.
func (s *Service) orderRecipients(orderID uint) (*order.Order, map[uint]struct{}, error) {
	var o order.Order
	err := s.db.Preload("Items").First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("order %d not found", orderID)
		}
		return nil, nil, fmt.Errorf("failed to get order: %w", err)
	}

	productIDs := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	var sellerIDs []uint
	err = s.db.Model(&product.Product{}).
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("products.id IN ?", productIDs).
		Distinct().
		Pluck("shops.user_id", &sellerIDs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sellers: %w", err)
	}

	set := make(map[uint]struct{}, len(sellerIDs))
	for _, id := range sellerIDs {
		set[id] = struct{}{}
	}
	return &o, set, nil
}

func orderData(orderID uint) string {
	data, _ := json.Marshal(map[string]uint{"order_id": orderID})
	return string(data)
}
