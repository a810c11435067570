// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/shop"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service builds hosted checkout sessions for PENDING orders
type Service struct {
	db      *gorm.DB
	config  *config.Config
	gateway payment.Gateway
	logger  *logrus.Logger
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, cfg *config.Config, gateway payment.Gateway, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		gateway: gateway,
		logger:  logger,
	}
}

// SessionResponse represents the created checkout session handle
type SessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateSession builds a hosted checkout session for the buyer's PENDING
// order. Every line item must resolve to a registered price and every
// product must belong to the same payment-enabled shop; the settlement
// instruction routes the charge to that shop's connected account minus the
// platform commission computed from the order's snapshotted subtotal. The
// order id rides along as payment metadata so the webhook reconciler can
// find its way back.
func (s *Service) CreateSession(ctx context.Context, userID, orderID uint) (*SessionResponse, error) {
	var o order.Order
	err := s.db.Preload("Items").Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o.Status != order.StatusPending {
		return nil, apperrors.Conflict("order %d is not awaiting payment", orderID)
	}
	if len(o.Items) == 0 {
		return nil, apperrors.Conflict("order %d has no items", orderID)
	}

	lineItems, destinationShop, err := s.resolveLineItems(&o)
	if err != nil {
		return nil, err
	}

	fee := ApplicationFee(o.Subtotal, s.config.Platform.CommissionRate)

	session, err := s.gateway.CreateCheckoutSession(ctx, &payment.CheckoutSessionParams{
		LineItems:          lineItems,
		ShippingFee:        o.ShippingFee,
		DestinationAccount: destinationShop.StripeAccountID,
		ApplicationFee:     fee,
		Metadata: map[string]string{
			payment.MetadataOrderID: strconv.FormatUint(uint64(o.ID), 10),
		},
		SuccessURL: fmt.Sprintf("%s/checkout/success?order_id=%d", s.config.Platform.RootURL, o.ID),
		CancelURL:  fmt.Sprintf("%s/checkout/cancel?order_id=%d", s.config.Platform.RootURL, o.ID),
	})
	if err != nil {
		return nil, apperrors.External(err, "failed to create checkout session for order %d", o.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":        o.ID,
		"session_id":      session.ID,
		"destination":     destinationShop.StripeAccountID,
		"application_fee": fee,
	}).Info("Checkout session created")

	return &SessionResponse{SessionID: session.ID, URL: session.URL}, nil
}

// resolveLineItems maps every order line to its registered price id and
// verifies the whole order settles to exactly one shop.
func (s *Service) resolveLineItems(o *order.Order) ([]payment.CheckoutLineItem, *shop.Shop, error) {
	var (
		lineItems   []payment.CheckoutLineItem
		destination *shop.Shop
	)

	for _, item := range o.Items {
		var p product.Product
		if err := s.db.Preload("Variants").First(&p, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apperrors.NotFound("product %d not found", item.ProductID)
			}
			return nil, nil, fmt.Errorf("failed to get product: %w", err)
		}

		priceID := p.StripePriceID
		if item.VariantSKU != "" {
			variant := p.FindVariant(item.VariantSKU)
			if variant == nil {
				return nil, nil, apperrors.NotFound("variant %q not found for product %d", item.VariantSKU, p.ID)
			}
			priceID = variant.StripePriceID
		}
		if priceID == "" {
			return nil, nil, apperrors.Conflict("product %d has no registered price", p.ID)
		}

		var itemShop shop.Shop
		if err := s.db.First(&itemShop, p.ShopID).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to get shop: %w", err)
		}
		if destination == nil {
			destination = &itemShop
		} else if destination.ID != itemShop.ID {
			return nil, nil, apperrors.Conflict("order %d spans multiple shops", o.ID)
		}

		lineItems = append(lineItems, payment.CheckoutLineItem{
			PriceID:  priceID,
			Quantity: int64(item.Quantity),
		})
	}

	if !destination.CanReceivePayments() {
		return nil, nil, apperrors.Conflict("shop %d cannot receive payments", destination.ID)
	}

	return lineItems, destination, nil
}

// ApplicationFee computes the platform's cut from the order subtotal as a
// single rounded multiplication, so the fee and the per-line earnings come
// from the same snapshot.
func ApplicationFee(subtotal int64, rate float64) int64 {
	return int64(math.Round(float64(subtotal) * rate))
}
