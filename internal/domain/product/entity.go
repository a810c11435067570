// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalStatus is the admin moderation state of a listing
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Product represents a listing owned by a shop. A product either carries a
// flat price/stock or a list of variants, each with its own price, stock and
// SKU. Prices are in minor currency units.
type Product struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ShopID      uint   `gorm:"not null;index" json:"shop_id"`
	Name        string `gorm:"not null;size:255" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	CategoryID  *uint  `gorm:"index" json:"category_id"`

	BasePrice int64 `gorm:"not null" json:"base_price"`
	SalePrice int64 `json:"sale_price"` // Overrides base price when set

	Stock         int `gorm:"default:0" json:"stock"`
	LowStockAlert int `gorm:"default:10" json:"low_stock_alert"`

	// Shipping policy: flat fee per line unless the product ships free.
	ShippingFee  int64 `gorm:"default:0" json:"shipping_fee"`
	FreeShipping bool  `gorm:"default:false" json:"free_shipping"`

	CoverImage string `gorm:"size:500" json:"cover_image"`

	IsActive       bool           `gorm:"default:true" json:"is_active"`
	ApprovalStatus ApprovalStatus `gorm:"size:20;not null;default:'PENDING'" json:"approval_status"`

	// Payment-processor identifiers assigned during seller onboarding.
	// Checkout cannot be initiated for a product without a price ID.
	StripeProductID string `gorm:"size:255" json:"stripe_product_id,omitempty"`
	StripePriceID   string `gorm:"size:255" json:"stripe_price_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Variant represents a purchasable variation of a product (size, color).
// Stock and price are independent of the parent product's.
type Variant struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	SKU       string `gorm:"not null;size:100;index" json:"sku"`
	Price     int64  `gorm:"not null" json:"price"`
	Stock     int    `gorm:"default:0" json:"stock"`
	Options   string `gorm:"type:text" json:"options"` // JSON attribute map, e.g. {"color":"red","size":"M"}

	StripeProductID string `gorm:"size:255" json:"stripe_product_id,omitempty"`
	StripePriceID   string `gorm:"size:255" json:"stripe_price_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Variant) TableName() string  { return "product_variants" }
func (Category) TableName() string { return "categories" }

// EffectivePrice returns the sale price when set, else the base price.
func (p *Product) EffectivePrice() int64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.BasePrice
}

// HasVariants reports whether purchases must name a variant SKU
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant returns the variant with the given SKU, or nil.
func (p *Product) FindVariant(sku string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// IsPurchasable reports whether the product may appear in carts and orders
func (p *Product) IsPurchasable() bool {
	return p.IsActive && p.ApprovalStatus == ApprovalApproved
}

// IsLowStock reports whether flat stock fell below the alert threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockAlert
}
