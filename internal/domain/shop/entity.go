// internal/domain/shop/entity.go
package shop

import (
	"time"

	"gorm.io/gorm"
)

// Status represents the admin approval state of a shop
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
)

// BusinessType distinguishes individual sellers from registered companies
type BusinessType string

const (
	BusinessTypeIndividual BusinessType = "INDIVIDUAL"
	BusinessTypeCompany    BusinessType = "COMPANY"
)

// Shop represents a seller's storefront. One shop per seller user.
type Shop struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"uniqueIndex;not null" json:"user_id"`
	Name            string       `gorm:"not null;size:255" json:"name"`
	Category        string       `gorm:"size:100" json:"category"`
	BusinessType    BusinessType `gorm:"size:20;not null;default:'INDIVIDUAL'" json:"business_type"`
	Description     string       `gorm:"size:500" json:"description"`
	Country         string       `gorm:"size:2;not null" json:"country"`
	City            string       `gorm:"size:100" json:"city"`
	BusinessAddress string       `gorm:"size:255" json:"business_address"`
	PickupLocation  string       `gorm:"size:255" json:"pickup_location"`
	PhoneNumber     string       `gorm:"size:20" json:"phone_number"`

	// StripeAccountID is the seller's connected account. Sale proceeds minus
	// the platform commission are transferred to it at checkout settlement.
	StripeAccountID string `gorm:"size:255;index" json:"stripe_account_id,omitempty"`

	Status           Status `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	RejectionReason  string `gorm:"size:500" json:"rejection_reason,omitempty"`
	SuspensionReason string `gorm:"size:500" json:"suspension_reason,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Shop) TableName() string {
	return "shops"
}

// IsApproved reports whether the shop may list products and receive orders
func (s *Shop) IsApproved() bool {
	return s.Status == StatusApproved
}

// CanReceivePayments reports whether checkout may route funds to this shop
func (s *Shop) CanReceivePayments() bool {
	return s.IsApproved() && s.StripeAccountID != ""
}
