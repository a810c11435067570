// internal/domain/shop/service.go
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles shop business logic
type Service struct {
	db      *gorm.DB
	config  *config.Config
	gateway payment.Gateway
	logger  *logrus.Logger
}

// NewService creates a new shop service
func NewService(db *gorm.DB, cfg *config.Config, gateway payment.Gateway, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		gateway: gateway,
		logger:  logger,
	}
}

// CreateShopRequest represents a seller application
type CreateShopRequest struct {
	Name            string       `json:"name" binding:"required,min=2,max=255"`
	Category        string       `json:"category" binding:"max=100"`
	BusinessType    BusinessType `json:"business_type" binding:"required,oneof=INDIVIDUAL COMPANY"`
	Description     string       `json:"description" binding:"max=500"`
	Country         string       `json:"country" binding:"required,len=2"`
	City            string       `json:"city" binding:"max=100"`
	BusinessAddress string       `json:"business_address" binding:"max=255"`
	PickupLocation  string       `json:"pickup_location" binding:"max=255"`
	PhoneNumber     string       `json:"phone_number" binding:"max=20"`
}

// RejectShopRequest carries the admin's rejection reason
type RejectShopRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// OnboardingResponse represents the connect onboarding redirect
type OnboardingResponse struct {
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

// OnboardingStatus represents the connected account's readiness
type OnboardingStatus struct {
	AccountID        string `json:"account_id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// CreateShop registers a seller application. One shop per user; the shop
// stays PENDING until an admin approves it.
func (s *Service) CreateShop(userID uint, req *CreateShopRequest) (*Shop, error) {
	var existing Shop
	err := s.db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("user %d already has a shop", userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing shop: %w", err)
	}

	newShop := Shop{
		UserID:          userID,
		Name:            req.Name,
		Category:        req.Category,
		BusinessType:    req.BusinessType,
		Description:     req.Description,
		Country:         req.Country,
		City:            req.City,
		BusinessAddress: req.BusinessAddress,
		PickupLocation:  req.PickupLocation,
		PhoneNumber:     req.PhoneNumber,
		Status:          StatusPending,
	}
	if err := s.db.Create(&newShop).Error; err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"shop_id": newShop.ID,
		"user_id": userID,
	}).Info("Shop application submitted")

	return &newShop, nil
}

// GetMyShop retrieves the caller's shop
func (s *Service) GetMyShop(userID uint) (*Shop, error) {
	var sh Shop
	err := s.db.Where("user_id = ?", userID).First(&sh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("shop not found")
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &sh, nil
}

// GetShop retrieves an approved shop for public display
func (s *Service) GetShop(shopID uint) (*Shop, error) {
	var sh Shop
	err := s.db.First(&sh, shopID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("shop %d not found", shopID)
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if !sh.IsApproved() {
		return nil, apperrors.NotFound("shop %d not found", shopID)
	}
	return &sh, nil
}

// ListPendingShops returns applications awaiting review (admin operation)
func (s *Service) ListPendingShops() ([]Shop, error) {
	var shops []Shop
	err := s.db.Where("status = ?", StatusPending).Order("created_at ASC").Find(&shops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending shops: %w", err)
	}
	return shops, nil
}

// ApproveShop approves a shop application and grants the owner the seller
// role in the same transaction.
func (s *Service) ApproveShop(shopID uint) (*Shop, error) {
	var sh Shop
	if err := s.db.First(&sh, shopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("shop %d not found", shopID)
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if sh.Status != StatusPending {
		return nil, apperrors.Conflict("shop %d is not pending approval", shopID)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&sh).Update("status", StatusApproved).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to approve shop: %w", err)
	}
	if err := tx.Model(&user.User{}).Where("id = ?", sh.UserID).
		Update("role", user.RoleSeller).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to grant seller role: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit shop approval: %w", err)
	}

	s.logger.WithField("shop_id", shopID).Info("Shop approved")
	sh.Status = StatusApproved
	return &sh, nil
}

// RejectShop rejects a pending application with a reason (admin operation)
func (s *Service) RejectShop(shopID uint, reason string) error {
	result := s.db.Model(&Shop{}).
		Where("id = ? AND status = ?", shopID, StatusPending).
		Updates(map[string]interface{}{
			"status":           StatusRejected,
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reject shop: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("shop %d is not pending approval", shopID)
	}
	return nil
}

// SuspendShop suspends an approved shop (admin operation). Its listings stop
// being purchasable via the shop approval check at checkout.
func (s *Service) SuspendShop(shopID uint, reason string) error {
	result := s.db.Model(&Shop{}).
		Where("id = ? AND status = ?", shopID, StatusApproved).
		Updates(map[string]interface{}{
			"status":            StatusSuspended,
			"suspension_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to suspend shop: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("shop %d is not approved", shopID)
	}
	return nil
}

// StartOnboarding creates the shop's connected payment account on first call
// and returns a fresh onboarding link. Safe to call repeatedly; an existing
// account just gets a new link.
func (s *Service) StartOnboarding(ctx context.Context, userID uint) (*OnboardingResponse, error) {
	sh, err := s.GetMyShop(userID)
	if err != nil {
		return nil, err
	}
	if !sh.IsApproved() {
		return nil, apperrors.Forbidden("shop is not approved")
	}

	if sh.StripeAccountID == "" {
		var owner user.User
		if err := s.db.First(&owner, sh.UserID).Error; err != nil {
			return nil, fmt.Errorf("failed to get shop owner: %w", err)
		}

		account, err := s.gateway.CreateAccount(ctx, sh.Country, owner.Email)
		if err != nil {
			return nil, apperrors.External(err, "failed to create connected account for shop %d", sh.ID)
		}
		if err := s.db.Model(sh).Update("stripe_account_id", account.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to save account id: %w", err)
		}
		sh.StripeAccountID = account.ID

		s.logger.WithFields(logrus.Fields{
			"shop_id":    sh.ID,
			"account_id": account.ID,
		}).Info("Connected account created")
	}

	url, err := s.gateway.CreateAccountLink(ctx, sh.StripeAccountID)
	if err != nil {
		return nil, apperrors.External(err, "failed to create onboarding link for shop %d", sh.ID)
	}

	return &OnboardingResponse{AccountID: sh.StripeAccountID, URL: url}, nil
}

// GetOnboardingStatus reports the connected account's readiness
func (s *Service) GetOnboardingStatus(ctx context.Context, userID uint) (*OnboardingStatus, error) {
	sh, err := s.GetMyShop(userID)
	if err != nil {
		return nil, err
	}
	if sh.StripeAccountID == "" {
		return nil, apperrors.NotFound("shop %d has no connected account", sh.ID)
	}

	account, err := s.gateway.GetAccount(ctx, sh.StripeAccountID)
	if err != nil {
		return nil, apperrors.External(err, "failed to get connected account for shop %d", sh.ID)
	}

	return &OnboardingStatus{
		AccountID:        account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}, nil
}
