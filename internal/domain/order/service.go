// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// PlaceOrderRequest represents order placement data. The shipping address is
// either a reference into the buyer's address book or an inline address, and
// may be omitted entirely for orders that need no delivery.
type PlaceOrderRequest struct {
	AddressID       *uint            `json:"address_id,omitempty"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
}

// UpdateStatusRequest represents a status transition request
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    Status `form:"status"`
	SortOrder string `form:"sort_order,default=desc"`
}

// OrderListResponse represents orders with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// PlaceOrder converts the buyer's cart into a PENDING order in a single
// transaction: authoritative prices are re-read from the catalog, stock is
// decremented with a guarded update so concurrent orders cannot oversell,
// line items and totals are snapshotted, the cart is cleared and an
// ORDER_PLACED event is appended. Any failure rolls the whole thing back.
func (s *Service) PlaceOrder(userID uint, req *PlaceOrderRequest) (*Order, error) {
	shippingAddress, err := s.resolveShippingAddress(userID, req)
	if err != nil {
		return nil, err
	}

	var c cart.Cart
	if err := s.db.Preload("Items").Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("cart is empty")
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, apperrors.Validation("cart is empty")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var (
		items       []OrderItem
		subtotal    int64
		shippingFee int64
	)

	for _, cartItem := range c.Items {
		var p product.Product
		if err := tx.Preload("Variants").First(&p, cartItem.ProductID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("product %d not found", cartItem.ProductID)
			}
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if !p.IsPurchasable() {
			tx.Rollback()
			return nil, apperrors.Conflict("product %d is no longer available", p.ID)
		}

		// Authoritative price comes from the catalog row read inside the
		// transaction, never from the cart snapshot.
		unitPrice := p.EffectivePrice()
		title := p.Name
		if cartItem.VariantSKU != "" {
			variant := p.FindVariant(cartItem.VariantSKU)
			if variant == nil {
				tx.Rollback()
				return nil, apperrors.NotFound("variant %q not found for product %d", cartItem.VariantSKU, p.ID)
			}
			unitPrice = variant.Price
			title = fmt.Sprintf("%s (%s)", p.Name, variant.SKU)

			if err := s.decrementVariantStock(tx, variant.ID, cartItem.Quantity); err != nil {
				tx.Rollback()
				return nil, err
			}
		} else {
			if p.HasVariants() {
				tx.Rollback()
				return nil, apperrors.Validation("product %d requires a variant SKU", p.ID)
			}
			if err := s.decrementProductStock(tx, p.ID, cartItem.Quantity); err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		items = append(items, OrderItem{
			ProductID:  p.ID,
			VariantSKU: cartItem.VariantSKU,
			Title:      title,
			Price:      unitPrice,
			Quantity:   cartItem.Quantity,
		})
		subtotal += unitPrice * int64(cartItem.Quantity)
		if !p.FreeShipping {
			shippingFee += p.ShippingFee
		}
	}

	newOrder := Order{
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     shippingFee,
		Total:           subtotal + shippingFee,
		Status:          StatusPending,
		ShippingAddress: *shippingAddress,
	}
	if err := tx.Create(&newOrder).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := tx.Where("cart_id = ?", c.ID).Delete(&cart.CartItem{}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := event.Append(tx, event.OrderPlaced, event.OrderPlacedPayload{OrderID: newOrder.ID}); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to append order placed event: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": newOrder.ID,
		"user_id":  userID,
		"total":    newOrder.Total,
	}).Info("Order placed")

	return &newOrder, nil
}

// decrementProductStock performs the guarded stock decrement. The WHERE
// clause makes oversell impossible under concurrency: of two racing orders
// for the last unit, exactly one matches the row.
func (s *Service) decrementProductStock(tx *gorm.DB, productID uint, quantity int) error {
	result := tx.Model(&product.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("insufficient stock for product %d", productID)
	}
	return nil
}

func (s *Service) decrementVariantStock(tx *gorm.DB, variantID uint, quantity int) error {
	result := tx.Model(&product.Variant{}).
		Where("id = ? AND stock >= ?", variantID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement variant stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("insufficient stock for variant %d", variantID)
	}
	return nil
}

func (s *Service) resolveShippingAddress(userID uint, req *PlaceOrderRequest) (*ShippingAddress, error) {
	if req.AddressID != nil {
		var addr user.Address
		err := s.db.Where("id = ? AND user_id = ?", *req.AddressID, userID).First(&addr).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("address %d not found", *req.AddressID)
			}
			return nil, fmt.Errorf("failed to get address: %w", err)
		}
		return &ShippingAddress{
			FullName:    addr.FullName,
			Phone:       addr.Phone,
			AddressLine: addr.Street,
			City:        addr.City,
			Country:     addr.Country,
			PostalCode:  addr.PostalCode,
		}, nil
	}

	if req.ShippingAddress != nil {
		if req.ShippingAddress.AddressLine == "" || req.ShippingAddress.City == "" {
			return nil, apperrors.Validation("shipping address is incomplete")
		}
		addr := *req.ShippingAddress
		return &addr, nil
	}

	// No address at all is allowed; the snapshot stays empty.
	return &ShippingAddress{}, nil
}

// GetOrder retrieves an order owned by the buyer
func (s *Service) GetOrder(userID, orderID uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// GetOrderByID retrieves any order (internal and admin use)
func (s *Service) GetOrderByID(orderID uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// ListOrders returns the buyer's orders, newest first
func (s *Service) ListOrders(userID uint, req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Where("user_id = ?", userID)
	if req.Status != "" {
		if !IsValidStatus(req.Status) {
			return nil, apperrors.Validation("invalid status %q", req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Items").
		Order("created_at " + sortOrder).
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// ListShopOrders returns orders containing at least one of the seller's
// products, newest first.
func (s *Service) ListShopOrders(sellerID uint) ([]Order, error) {
	productIDs, err := s.sellerProductIDs(sellerID)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return []Order{}, nil
	}

	ids := make([]uint, 0, len(productIDs))
	for id := range productIDs {
		ids = append(ids, id)
	}

	var orders []Order
	err = s.db.Preload("Items").
		Where("id IN (?)", s.db.Model(&OrderItem{}).Select("DISTINCT order_id").Where("product_id IN ?", ids)).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shop orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies a status transition on behalf of a seller or admin.
// Sellers may only touch orders containing their products; the forward chain
// is enforced and the write is guarded on the current status so concurrent
// transitions cannot double-apply.
func (s *Service) UpdateStatus(actorID uint, actorRole string, orderID uint, next Status) (*Order, error) {
	if !IsValidStatus(next) {
		return nil, apperrors.Validation("invalid status %q", next)
	}

	o, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if actorRole != string(user.RoleAdmin) {
		productIDs, err := s.sellerProductIDs(actorID)
		if err != nil {
			return nil, err
		}
		if !o.ContainsProductOf(productIDs) {
			return nil, apperrors.Forbidden("order %d does not belong to this shop", orderID)
		}
	}

	if !o.CanTransitionTo(next) {
		return nil, apperrors.Conflict("cannot transition order %d from %s to %s", orderID, o.Status, next)
	}

	return s.applyTransition(o, next)
}

// CancelOrder cancels the buyer's own order. Only orders not yet shipped can
// be cancelled; decremented stock is returned to the catalog.
func (s *Service) CancelOrder(userID, orderID uint) (*Order, error) {
	o, err := s.GetOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(StatusCancelled) {
		return nil, apperrors.Conflict("cannot cancel order %d in status %s", orderID, o.Status)
	}
	return s.applyTransition(o, StatusCancelled)
}

func (s *Service) applyTransition(o *Order, next Status) (*Order, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{"status": next}
	if next == StatusDelivered {
		updates["delivered_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}

	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperrors.Conflict("order %d was modified concurrently", o.ID)
	}

	if next == StatusCancelled {
		if err := s.restock(tx, o); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	payload := event.OrderStatusUpdatedPayload{OrderID: o.ID, Status: string(next)}
	if err := event.Append(tx, event.OrderStatusUpdated, payload); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to append status event: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"from":     o.Status,
		"to":       next,
	}).Info("Order status updated")

	return s.GetOrderByID(o.ID)
}

// restock returns the order's quantities to the catalog on cancellation
func (s *Service) restock(tx *gorm.DB, o *Order) error {
	for _, item := range o.Items {
		if item.VariantSKU != "" {
			err := tx.Model(&product.Variant{}).
				Where("product_id = ? AND sku = ?", item.ProductID, item.VariantSKU).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
			if err != nil {
				return fmt.Errorf("failed to restock variant: %w", err)
			}
			continue
		}
		err := tx.Model(&product.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		if err != nil {
			return fmt.Errorf("failed to restock product: %w", err)
		}
	}
	return nil
}

// DeleteOrder soft deletes an order (admin operation)
func (s *Service) DeleteOrder(orderID uint) error {
	result := s.db.Delete(&Order{}, orderID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("order %d not found", orderID)
	}
	return nil
}

// sellerProductIDs returns the set of product ids owned by the seller's shop
func (s *Service) sellerProductIDs(sellerID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := s.db.Model(&product.Product{}).
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("shops.user_id = ?", sellerID).
		Pluck("products.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get seller products: %w", err)
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
