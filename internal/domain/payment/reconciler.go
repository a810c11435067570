// internal/domain/payment/reconciler.go
package payment

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Reconciler consumes verified webhook events and settles order state.
// Webhook delivery is at-least-once, so every handler must be idempotent:
// a duplicate or out-of-order event is acknowledged without effect.
type Reconciler struct {
	db      *gorm.DB
	config  *config.Config
	gateway Gateway
	logger  *logrus.Logger
}

// NewReconciler creates a new webhook reconciler
func NewReconciler(db *gorm.DB, cfg *config.Config, gateway Gateway, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		db:      db,
		config:  cfg,
		gateway: gateway,
		logger:  logger,
	}
}

// HandleWebhook verifies the raw payload signature and dispatches the event.
// A signature failure is the only error that should surface as a client
// fault; everything else is acknowledged so the processor stops retrying.
func (r *Reconciler) HandleWebhook(payload []byte, signature string) error {
	evt, err := r.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return apperrors.Unauthorized("webhook verification failed: %v", err)
	}

	switch evt.Type {
	case EventPaymentSucceeded:
		return r.handlePaymentSucceeded(evt)
	case EventPayoutPaid:
		r.logger.WithField("payout_id", evt.ObjectID).Info("Payout paid")
		return nil
	case EventPayoutFailed:
		r.logger.WithField("payout_id", evt.ObjectID).Warn("Payout failed")
		return nil
	default:
		r.logger.WithField("event_type", evt.Type).Debug("Ignoring webhook event")
		return nil
	}
}

// handlePaymentSucceeded confirms the order named in the intent metadata.
// The guarded update is the idempotency mechanism: it only matches a PENDING
// row, so a redelivered event or a racing duplicate finds nothing to do.
func (r *Reconciler) handlePaymentSucceeded(evt *WebhookEvent) error {
	rawOrderID, ok := evt.Metadata[MetadataOrderID]
	if !ok || rawOrderID == "" {
		r.logger.WithField("event_id", evt.ID).Warn("Payment event without order metadata")
		return nil
	}
	orderID, err := strconv.ParseUint(rawOrderID, 10, 64)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": rawOrderID,
		}).Warn("Payment event with malformed order metadata")
		return nil
	}

	tx := r.db.Begin()
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
		}
	}()

	result := tx.Table("orders").
		Where("id = ? AND status = ?", orderID, "PENDING").
		Updates(map[string]interface{}{
			"status":  "ORDER_CONFIRMED",
			"paid_at": time.Now().UTC(),
		})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to confirm order %d: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		r.logger.WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": orderID,
		}).Info("Order already confirmed or unknown, acknowledging")
		return nil
	}

	payload := event.OrderStatusUpdatedPayload{OrderID: uint(orderID), Status: "ORDER_CONFIRMED"}
	if err := event.Append(tx, event.OrderStatusUpdated, payload); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to append confirmation event: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit order confirmation: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"event_id": evt.ID,
		"order_id": orderID,
	}).Info("Order confirmed")

	r.logSellerEarnings(uint(orderID))

	return nil
}

// logSellerEarnings records the seller's expected net per confirmed line.
// Runs once per order because the guarded update admits only the first
// confirmation. Informational only; the processor is the source of truth
// for settled amounts. Raw table access keeps this package free of the
// order package, which imports payment through the catalog.
func (r *Reconciler) logSellerEarnings(orderID uint) {
	var lines []struct {
		ProductID uint
		Quantity  int
		Price     int64
		ShopID    uint
	}
	err := r.db.Table("order_items").
		Select("order_items.product_id, order_items.quantity, order_items.price, products.shop_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ?", orderID).
		Scan(&lines).Error
	if err != nil {
		r.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to load order lines for earnings")
		return
	}

	rate := r.config.Platform.CommissionRate
	for _, line := range lines {
		gross := line.Price * int64(line.Quantity)
		net := int64(math.Round(float64(gross) * (1 - rate)))
		r.logger.WithFields(logrus.Fields{
			"order_id":   orderID,
			"shop_id":    line.ShopID,
			"product_id": line.ProductID,
			"gross":      gross,
			"net":        net,
		}).Info("Seller earning")
	}
}
