// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// Cart is the buyer's mutable shopping cart. One cart per buyer.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem maps (product, optional variant SKU) to a quantity and a price
// snapshot taken when the item was added or last updated. The snapshot is
// advisory only: order placement re-reads authoritative prices from the
// catalog inside its transaction.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CartID     uint      `gorm:"not null;index" json:"cart_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	VariantSKU string    `gorm:"size:100" json:"variant_sku,omitempty"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Price      int64     `gorm:"not null" json:"price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Subtotal sums the cart's snapshot prices. Display-only; authoritative
// totals are computed at order placement.
func (c *Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
