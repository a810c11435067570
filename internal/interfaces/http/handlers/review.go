// internal/interfaces/http/handlers/review.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/review"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// ReviewHandler handles review endpoints
type ReviewHandler struct {
	reviewService *review.Service
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *review.Service) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// CreateReview records a review on a delivered order
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req review.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	r, err := h.reviewService.CreateReview(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Review submitted successfully",
		"data":    r,
	})
}

// ListProductReviews returns a product's reviews with the average rating
func (h *ReviewHandler) ListProductReviews(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	response, err := h.reviewService.ListProductReviews(productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": response,
	})
}

// DeleteReview removes the caller's own review
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(userID, reviewID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Review deleted successfully",
	})
}
