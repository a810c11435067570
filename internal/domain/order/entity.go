// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// Status represents the order status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "ORDER_CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// AllStatuses lists the canonical status values accepted by the
// status-update operation.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Order is the aggregate root. It is created once per checkout attempt with
// an immutable line-item snapshot; only the payment reconciler (PENDING ->
// ORDER_CONFIRMED) and the authorized status-update operation mutate it.
type Order struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID uint  `gorm:"not null;index" json:"user_id"` // The buyer. Immutable after creation.

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`

	// Derived once at creation from the snapshotted prices; never recomputed
	// from the catalog. Amounts in minor currency units.
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	ShippingFee int64 `gorm:"default:0" json:"shipping_fee"`
	Total       int64 `gorm:"not null" json:"total"`

	Status Status `gorm:"size:30;not null;default:'PENDING'" json:"status"`

	// ShippingAddress is a snapshot copied from the buyer's address book at
	// creation time, never a live reference.
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	PaidAt      *time.Time `json:"paid_at"`
	DeliveredAt *time.Time `json:"delivered_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// OrderItem is one immutable line-item snapshot: product reference, optional
// variant SKU, unit price and title at time of purchase.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	VariantSKU string    `gorm:"size:100" json:"variant_sku,omitempty"`
	Title      string    `gorm:"not null;size:255" json:"title"`
	Price      int64     `gorm:"not null" json:"price"` // Unit price snapshot
	Quantity   int       `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShippingAddress is the address snapshot embedded in an order
type ShippingAddress struct {
	FullName    string `gorm:"size:200" json:"full_name,omitempty"`
	Phone       string `gorm:"size:20" json:"phone,omitempty"`
	AddressLine string `gorm:"size:255" json:"address_line,omitempty"`
	City        string `gorm:"size:100" json:"city,omitempty"`
	Country     string `gorm:"size:2" json:"country,omitempty"`
	PostalCode  string `gorm:"size:20" json:"postal_code,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// IsValidStatus reports whether s is one of the five canonical values
func IsValidStatus(s Status) bool {
	for _, status := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the forward chain allows moving the order
// from its current status to the requested one. The chain is monotonic:
// PENDING -> ORDER_CONFIRMED -> SHIPPED -> DELIVERED, with CANCELLED
// reachable only from the early states.
func (o *Order) CanTransitionTo(next Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusDelivered},
	}

	for _, allowed := range transitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ContainsProductOf reports whether at least one line item references a
// product in the given set. Used for seller authorization.
func (o *Order) ContainsProductOf(productIDs map[uint]struct{}) bool {
	for _, item := range o.Items {
		if _, ok := productIDs[item.ProductID]; ok {
			return true
		}
	}
	return false
}
