// internal/domain/review/service.go
package review

import (
	"errors"
	"fmt"
	"math"

	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles product reviews
type Service struct {
	db *gorm.DB
}

// NewService creates a new review service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateReviewRequest represents review submission data
type CreateReviewRequest struct {
	OrderID   uint   `json:"order_id" binding:"required"`
	ProductID uint   `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=1000"`
}

// ProductReviewsResponse represents a product's reviews with the aggregate
type ProductReviewsResponse struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	Count         int64    `json:"count"`
}

// CreateReview records a review for a product on one of the buyer's
// delivered orders. One review per buyer, order and product.
func (s *Service) CreateReview(userID uint, req *CreateReviewRequest) (*Review, error) {
	var o order.Order
	err := s.db.Preload("Items").
		Where("id = ? AND user_id = ?", req.OrderID, userID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order %d not found", req.OrderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o.Status != order.StatusDelivered {
		return nil, apperrors.Conflict("order %d has not been delivered", req.OrderID)
	}

	found := false
	for _, item := range o.Items {
		if item.ProductID == req.ProductID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.Validation("product %d is not on order %d", req.ProductID, req.OrderID)
	}

	var existing Review
	err = s.db.Where("order_id = ? AND product_id = ? AND user_id = ?",
		req.OrderID, req.ProductID, userID).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("product %d already reviewed on order %d", req.ProductID, req.OrderID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}

	r := Review{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	tx := s.db.Begin()
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&r).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	payload := event.OrderReviewedPayload{OrderID: r.OrderID, ReviewID: r.ID}
	if err := event.Append(tx, event.OrderReviewed, payload); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to append review event: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	return &r, nil
}

// ListProductReviews returns a product's reviews and its average rating
func (s *Service) ListProductReviews(productID uint) (*ProductReviewsResponse, error) {
	var reviews []Review
	err := s.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	average := 0.0
	if len(reviews) > 0 {
		average = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}

	return &ProductReviewsResponse{
		Reviews:       reviews,
		AverageRating: average,
		Count:         int64(len(reviews)),
	}, nil
}

// DeleteReview removes the buyer's own review
func (s *Service) DeleteReview(userID, reviewID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", reviewID, userID).Delete(&Review{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("review %d not found", reviewID)
	}
	return nil
}
