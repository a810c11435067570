// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddItemRequest represents data to add an item to the cart
type AddItemRequest struct {
	ProductID  uint   `json:"product_id" binding:"required"`
	VariantSKU string `json:"variant_sku"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

// UpdateItemRequest represents a quantity change for a cart item
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// CartResponse represents the cart with its display subtotal
type CartResponse struct {
	Cart     *Cart `json:"cart"`
	Subtotal int64 `json:"subtotal"`
}

// GetCart retrieves the buyer's cart, creating an empty one on first use
func (s *Service) GetCart(userID uint) (*CartResponse, error) {
	c, err := s.getOrCreateCart(userID)
	if err != nil {
		return nil, err
	}
	return &CartResponse{Cart: c, Subtotal: c.Subtotal()}, nil
}

func (s *Service) getOrCreateCart(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Preload("Items").Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	c = Cart{UserID: userID}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

// AddItem adds a product (or one of its variants) to the cart, merging with
// an existing line for the same product and SKU. The price snapshot is
// display-only; order placement re-reads the catalog.
func (s *Service) AddItem(userID uint, req *AddItemRequest) (*CartResponse, error) {
	var p product.Product
	err := s.db.Preload("Variants").First(&p, req.ProductID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %d not found", req.ProductID)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !p.IsPurchasable() {
		return nil, apperrors.NotFound("product %d not found", req.ProductID)
	}

	price := p.EffectivePrice()
	stock := p.Stock
	if p.HasVariants() {
		if req.VariantSKU == "" {
			return nil, apperrors.Validation("product %d requires a variant SKU", req.ProductID)
		}
		variant := p.FindVariant(req.VariantSKU)
		if variant == nil {
			return nil, apperrors.NotFound("variant %q not found for product %d", req.VariantSKU, req.ProductID)
		}
		price = variant.Price
		stock = variant.Stock
	} else if req.VariantSKU != "" {
		return nil, apperrors.Validation("product %d has no variants", req.ProductID)
	}

	c, err := s.getOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	var item CartItem
	err = s.db.Where("cart_id = ? AND product_id = ? AND variant_sku = ?",
		c.ID, req.ProductID, req.VariantSKU).First(&item).Error
	switch {
	case err == nil:
		newQuantity := item.Quantity + req.Quantity
		if newQuantity > stock {
			return nil, apperrors.Conflict("insufficient stock for product %d", req.ProductID)
		}
		item.Quantity = newQuantity
		item.Price = price
		if err := s.db.Save(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if req.Quantity > stock {
			return nil, apperrors.Conflict("insufficient stock for product %d", req.ProductID)
		}
		item = CartItem{
			CartID:     c.ID,
			ProductID:  req.ProductID,
			VariantSKU: req.VariantSKU,
			Quantity:   req.Quantity,
			Price:      price,
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	return s.GetCart(userID)
}

// UpdateItem changes the quantity of a cart line
func (s *Service) UpdateItem(userID, itemID uint, req *UpdateItemRequest) (*CartResponse, error) {
	c, err := s.getOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	var item CartItem
	err = s.db.Where("id = ? AND cart_id = ?", itemID, c.ID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("cart item %d not found", itemID)
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	if err := s.db.Model(&item).Update("quantity", req.Quantity).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.GetCart(userID)
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(userID, itemID uint) (*CartResponse, error) {
	c, err := s.getOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	result := s.db.Where("id = ? AND cart_id = ?", itemID, c.ID).Delete(&CartItem{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFound("cart item %d not found", itemID)
	}

	return s.GetCart(userID)
}

// Clear removes every line from the buyer's cart
func (s *Service) Clear(userID uint) error {
	c, err := s.getOrCreateCart(userID)
	if err != nil {
		return err
	}
	if err := s.db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
