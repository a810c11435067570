// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout session endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// CreateSessionRequest names the order to pay for
type CreateSessionRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreateSession opens a hosted checkout session for a PENDING order
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	session, err := h.checkoutService.CreateSession(c.Request.Context(), userID, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout session created",
		"data":    session,
	})
}
