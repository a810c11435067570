// internal/worker/outbox/dispatcher.go
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/notification"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Dispatcher drains the outbox on an interval and fans events out as in-app
// notifications. Because events are written in the producing transaction and
// consumed here, a crashed dispatcher loses nothing: unprocessed rows are
// picked up on the next tick.
type Dispatcher struct {
	db            *gorm.DB
	config        *config.Config
	notifications *notification.Service
	logger        *logrus.Logger
}

// NewDispatcher creates a new outbox dispatcher
func NewDispatcher(db *gorm.DB, cfg *config.Config, notifications *notification.Service, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		config:        cfg,
		notifications: notifications,
		logger:        logger,
	}
}

// Run polls the outbox until the context is cancelled. Intended to be
// started as a goroutine from main.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.config.Platform.OutboxPollInterval)
	defer ticker.Stop()

	d.logger.WithField("interval", d.config.Platform.OutboxPollInterval).Info("Outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.DrainOnce(); err != nil {
				d.logger.WithError(err).Error("Outbox drain failed")
			}
		}
	}
}

// DrainOnce processes one batch of unprocessed events in insertion order.
// An event that fails with a retryable error stays unprocessed; an event
// referencing a vanished entity is marked processed so it cannot wedge the
// queue.
func (d *Dispatcher) DrainOnce() error {
	var events []event.OutboxEvent
	err := d.db.Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(d.config.Platform.OutboxBatchSize).
		Find(&events).Error
	if err != nil {
		return fmt.Errorf("failed to load outbox events: %w", err)
	}

	for _, evt := range events {
		if err := d.handle(&evt); err != nil {
			if apperrors.IsKind(err, apperrors.KindNotFound) {
				d.logger.WithFields(logrus.Fields{
					"event_id":   evt.ID,
					"event_type": evt.Type,
				}).WithError(err).Warn("Dropping event for missing entity")
			} else {
				d.logger.WithFields(logrus.Fields{
					"event_id":   evt.ID,
					"event_type": evt.Type,
				}).WithError(err).Warn("Event handling failed, will retry")
				continue
			}
		}

		now := time.Now().UTC()
		if err := d.db.Model(&event.OutboxEvent{}).
			Where("id = ?", evt.ID).
			Update("processed_at", now).Error; err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
	}

	return nil
}

func (d *Dispatcher) handle(evt *event.OutboxEvent) error {
	switch evt.Type {
	case event.OrderPlaced:
		var payload event.OrderPlacedPayload
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
			return apperrors.NotFound("malformed payload: %v", err)
		}
		return d.notifications.NotifyOrderPlaced(payload.OrderID)
	case event.OrderStatusUpdated:
		var payload event.OrderStatusUpdatedPayload
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
			return apperrors.NotFound("malformed payload: %v", err)
		}
		return d.notifications.NotifyOrderStatus(payload.OrderID, payload.Status)
	case event.OrderReviewed:
		var payload event.OrderReviewedPayload
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
			return apperrors.NotFound("malformed payload: %v", err)
		}
		return d.notifications.NotifyOrderReviewed(payload.OrderID, payload.ReviewID)
	default:
		d.logger.WithField("event_type", evt.Type).Warn("Unknown outbox event type")
		return nil
	}
}
