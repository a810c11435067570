// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Service handles user business logic
type Service struct {
	db         *gorm.DB
	config     *config.Config
	jwtManager *auth.JWTManager
	revocation *auth.RevocationStore
	logger     *logrus.Logger
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config, jwtManager *auth.JWTManager, revocation *auth.RevocationStore, logger *logrus.Logger) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		jwtManager: jwtManager,
		revocation: revocation,
		logger:     logger,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,min=2,max=200"`
	Phone    string `json:"phone" binding:"max=20"`
	Country  string `json:"country" binding:"len=2"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// AuthResponse represents a successful authentication
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new buyer account
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(req.Password, s.config.Security.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := User{
		Email:    email,
		Password: hash,
		FullName: req.FullName,
		Phone:    req.Phone,
		Country:  strings.ToUpper(req.Country),
		Role:     RoleBuyer,
		IsActive: true,
	}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User registered")

	return s.issueTokens(&u)
}

// Login authenticates a user by email and password
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var u User
	err := s.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !u.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	if !auth.CheckPassword(req.Password, u.Password) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	now := time.Now().UTC()
	if err := s.db.Model(&u).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to record login time")
	}

	return s.issueTokens(&u)
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	if s.revocation.IsRevoked(ctx, claims.ID) {
		return nil, apperrors.Unauthorized("refresh token revoked")
	}

	var u User
	if err := s.db.First(&u, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !u.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	if err := s.revokeClaims(ctx, claims); err != nil {
		s.logger.WithError(err).Warn("Failed to revoke used refresh token")
	}

	return s.issueTokens(&u)
}

// Logout revokes the presented access token for its remaining lifetime
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.revokeClaims(ctx, claims)
}

func (s *Service) revokeClaims(ctx context.Context, claims *auth.Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	return s.revocation.Revoke(ctx, claims.ID, ttl)
}

func (s *Service) issueTokens(u *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GetProfile retrieves a user with their address book
func (s *Service) GetProfile(userID uint) (*User, error) {
	var u User
	err := s.db.Preload("Addresses").First(&u, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user %d not found", userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateProfile applies a partial update to the user's profile
func (s *Service) UpdateProfile(userID uint, req *UpdateProfileRequest) (*User, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Country != nil {
		updates["country"] = strings.ToUpper(*req.Country)
	}

	if len(updates) > 0 {
		result := s.db.Model(&User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.NotFound("user %d not found", userID)
		}
	}

	return s.GetProfile(userID)
}

// DeactivateUser disables an account (admin operation). Existing tokens keep
// failing at the is-active check on next use.
func (s *Service) DeactivateUser(userID uint) error {
	result := s.db.Model(&User{}).Where("id = ?", userID).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("user %d not found", userID)
	}
	return nil
}
