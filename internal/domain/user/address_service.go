// internal/domain/user/address_service.go
package user

import (
	"errors"
	"fmt"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// AddressService handles the user's address book
type AddressService struct {
	db *gorm.DB
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressRequest represents address creation or update data
type AddressRequest struct {
	FullName   string `json:"full_name" binding:"required,max=200"`
	Phone      string `json:"phone" binding:"max=20"`
	Street     string `json:"street" binding:"required,max=255"`
	City       string `json:"city" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"required,len=2"`
	IsDefault  bool   `json:"is_default"`
}

// ListAddresses returns the user's address book
func (s *AddressService) ListAddresses(userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// CreateAddress adds an address. Marking it default clears the previous
// default inside the same transaction.
func (s *AddressService) CreateAddress(userID uint, req *AddressRequest) (*Address, error) {
	addr := Address{
		UserID:     userID,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.IsDefault {
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to clear default address: %w", err)
		}
	}
	if err := tx.Create(&addr).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit address: %w", err)
	}

	return &addr, nil
}

// UpdateAddress replaces an address owned by the user
func (s *AddressService) UpdateAddress(userID, addressID uint, req *AddressRequest) (*Address, error) {
	var addr Address
	err := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("address %d not found", addressID)
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.IsDefault && !addr.IsDefault {
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to clear default address: %w", err)
		}
	}

	addr.FullName = req.FullName
	addr.Phone = req.Phone
	addr.Street = req.Street
	addr.City = req.City
	addr.PostalCode = req.PostalCode
	addr.Country = req.Country
	addr.IsDefault = req.IsDefault
	if err := tx.Save(&addr).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit address update: %w", err)
	}

	return &addr, nil
}

// DeleteAddress removes an address owned by the user
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("address %d not found", addressID)
	}
	return nil
}
