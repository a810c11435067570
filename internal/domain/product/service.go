// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/shop"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db      *gorm.DB
	config  *config.Config
	gateway payment.Gateway
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config, gateway payment.Gateway) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		gateway: gateway,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name          string                 `json:"name" binding:"required,min=2,max=255"`
	Description   string                 `json:"description" binding:"max=500"`
	CategoryID    *uint                  `json:"category_id"`
	BasePrice     int64                  `json:"base_price" binding:"required,gt=0"`
	SalePrice     int64                  `json:"sale_price" binding:"gte=0"`
	Stock         int                    `json:"stock" binding:"gte=0"`
	LowStockAlert int                    `json:"low_stock_alert"`
	ShippingFee   int64                  `json:"shipping_fee" binding:"gte=0"`
	FreeShipping  bool                   `json:"free_shipping"`
	CoverImage    string                 `json:"cover_image"`
	Variants      []CreateVariantRequest `json:"variants"`
}

// CreateVariantRequest represents one variant in a product creation request
type CreateVariantRequest struct {
	SKU     string `json:"sku" binding:"required,max=100"`
	Price   int64  `json:"price" binding:"required,gt=0"`
	Stock   int    `json:"stock" binding:"gte=0"`
	Options string `json:"options"`
}

// UpdateProductRequest represents product update data
type UpdateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	CategoryID    *uint   `json:"category_id,omitempty"`
	SalePrice     *int64  `json:"sale_price,omitempty"`
	Stock         *int    `json:"stock,omitempty"`
	LowStockAlert *int    `json:"low_stock_alert,omitempty"`
	ShippingFee   *int64  `json:"shipping_fee,omitempty"`
	FreeShipping  *bool   `json:"free_shipping,omitempty"`
	CoverImage    *string `json:"cover_image,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	ShopID     uint   `form:"shop_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
}

// ProductListResponse represents product list with pagination
type ProductListResponse struct {
	Products   []Product  `json:"products"`
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

// CreateProduct creates a listing under the seller's shop. New listings start
// in PENDING approval and are invisible to buyers until an admin approves.
func (s *Service) CreateProduct(ctx context.Context, sellerID uint, req *CreateProductRequest) (*Product, error) {
	var sellerShop shop.Shop
	if err := s.db.Where("user_id = ?", sellerID).First(&sellerShop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("shop not found for seller %d", sellerID)
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if !sellerShop.IsApproved() {
		return nil, apperrors.Forbidden("shop is not approved")
	}

	if req.SalePrice > 0 && req.SalePrice >= req.BasePrice {
		return nil, apperrors.Validation("sale price must be below base price")
	}

	p := Product{
		ShopID:        sellerShop.ID,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		BasePrice:     req.BasePrice,
		SalePrice:     req.SalePrice,
		Stock:         req.Stock,
		LowStockAlert: req.LowStockAlert,
		ShippingFee:   req.ShippingFee,
		FreeShipping:  req.FreeShipping,
		CoverImage:    req.CoverImage,
		IsActive:      true,
	}
	if p.LowStockAlert <= 0 {
		p.LowStockAlert = 10
	}
	for _, v := range req.Variants {
		p.Variants = append(p.Variants, Variant{
			SKU:     v.SKU,
			Price:   v.Price,
			Stock:   v.Stock,
			Options: v.Options,
		})
	}

	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := s.registerPrices(ctx, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// registerPrices creates processor-side prices for the product and each
// variant so checkout sessions can reference them by id.
func (s *Service) registerPrices(ctx context.Context, p *Product) error {
	registered, err := s.gateway.RegisterPrice(ctx, p.Name, p.EffectivePrice())
	if err != nil {
		return apperrors.External(err, "failed to register price for product %d", p.ID)
	}
	p.StripeProductID = registered.ProductID
	p.StripePriceID = registered.PriceID
	if err := s.db.Model(p).Updates(map[string]interface{}{
		"stripe_product_id": registered.ProductID,
		"stripe_price_id":   registered.PriceID,
	}).Error; err != nil {
		return fmt.Errorf("failed to save price ids: %w", err)
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		name := fmt.Sprintf("%s (%s)", p.Name, v.SKU)
		registered, err := s.gateway.RegisterPrice(ctx, name, v.Price)
		if err != nil {
			return apperrors.External(err, "failed to register price for variant %s", v.SKU)
		}
		v.StripeProductID = registered.ProductID
		v.StripePriceID = registered.PriceID
		if err := s.db.Model(v).Updates(map[string]interface{}{
			"stripe_product_id": registered.ProductID,
			"stripe_price_id":   registered.PriceID,
		}).Error; err != nil {
			return fmt.Errorf("failed to save variant price ids: %w", err)
		}
	}

	return nil
}

// GetProduct retrieves a single purchasable product with its relations.
// Buyers never see inactive or unapproved listings through this path.
func (s *Service) GetProduct(productID uint) (*Product, error) {
	var p Product
	err := s.db.Preload("Category").Preload("Variants").First(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %d not found", productID)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !p.IsPurchasable() {
		return nil, apperrors.NotFound("product %d not found", productID)
	}
	return &p, nil
}

// GetSellerProduct retrieves any product belonging to the seller's shop,
// regardless of approval state.
func (s *Service) GetSellerProduct(sellerID, productID uint) (*Product, error) {
	var p Product
	err := s.db.Preload("Category").Preload("Variants").
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("products.id = ? AND shops.user_id = ?", productID, sellerID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %d not found", productID)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns the public catalog: active, approved listings only.
func (s *Service) ListProducts(req *ProductListRequest) (*ProductListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{}).
		Where("is_active = ? AND approval_status = ?", true, ApprovalApproved)

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.ShopID > 0 {
		query = query.Where("shop_id = ?", req.ShopID)
	}
	if req.Search != "" {
		search := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	sortBy := req.SortBy
	switch sortBy {
	case "name", "base_price", "created_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Category").Preload("Variants").
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	return &ProductListResponse{
		Products: products,
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

// ListSellerProducts returns all listings of the seller's shop
func (s *Service) ListSellerProducts(sellerID uint) ([]Product, error) {
	var products []Product
	err := s.db.Preload("Category").Preload("Variants").
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("shops.user_id = ?", sellerID).
		Order("products.created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seller products: %w", err)
	}
	return products, nil
}

// UpdateProduct applies a partial update to a listing owned by the seller
func (s *Service) UpdateProduct(sellerID, productID uint, req *UpdateProductRequest) (*Product, error) {
	p, err := s.GetSellerProduct(sellerID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.SalePrice != nil {
		if *req.SalePrice > 0 && *req.SalePrice >= p.BasePrice {
			return nil, apperrors.Validation("sale price must be below base price")
		}
		updates["sale_price"] = *req.SalePrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperrors.Validation("stock cannot be negative")
		}
		updates["stock"] = *req.Stock
	}
	if req.LowStockAlert != nil {
		updates["low_stock_alert"] = *req.LowStockAlert
	}
	if req.ShippingFee != nil {
		updates["shipping_fee"] = *req.ShippingFee
	}
	if req.FreeShipping != nil {
		updates["free_shipping"] = *req.FreeShipping
	}
	if req.CoverImage != nil {
		updates["cover_image"] = *req.CoverImage
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return p, nil
	}

	if err := s.db.Model(p).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return s.GetSellerProduct(sellerID, productID)
}

// DeleteProduct soft deletes a listing owned by the seller. Existing order
// line items keep their snapshots and are unaffected.
func (s *Service) DeleteProduct(sellerID, productID uint) error {
	p, err := s.GetSellerProduct(sellerID, productID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(p).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// ApproveProduct marks a listing approved (admin operation)
func (s *Service) ApproveProduct(productID uint) error {
	return s.setApproval(productID, ApprovalApproved)
}

// RejectProduct marks a listing rejected (admin operation)
func (s *Service) RejectProduct(productID uint) error {
	return s.setApproval(productID, ApprovalRejected)
}

func (s *Service) setApproval(productID uint, status ApprovalStatus) error {
	result := s.db.Model(&Product{}).Where("id = ?", productID).
		Update("approval_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update approval status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("product %d not found", productID)
	}
	return nil
}

// ListPendingProducts returns listings awaiting moderation (admin operation)
func (s *Service) ListPendingProducts() ([]Product, error) {
	var products []Product
	err := s.db.Preload("Variants").
		Where("approval_status = ?", ApprovalPending).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending products: %w", err)
	}
	return products, nil
}

// ListLowStockProducts returns the seller's listings at or below their alert
// threshold.
func (s *Service) ListLowStockProducts(sellerID uint) ([]Product, error) {
	var products []Product
	err := s.db.
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("shops.user_id = ? AND products.stock <= products.low_stock_alert", sellerID).
		Order("products.stock ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}
