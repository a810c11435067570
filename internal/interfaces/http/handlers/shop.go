// internal/interfaces/http/handlers/shop.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/shop"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// ShopHandler handles shop and seller onboarding endpoints
type ShopHandler struct {
	shopService *shop.Service
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *shop.Service) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
	}
}

// CreateShop submits a seller application
func (h *ShopHandler) CreateShop(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req shop.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sh, err := h.shopService.CreateShop(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Shop application submitted, pending approval",
		"data":    sh,
	})
}

// GetMyShop returns the caller's shop
func (h *ShopHandler) GetMyShop(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	sh, err := h.shopService.GetMyShop(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sh,
	})
}

// GetShop returns an approved shop for public display
func (h *ShopHandler) GetShop(c *gin.Context) {
	shopID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sh, err := h.shopService.GetShop(shopID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sh,
	})
}

// StartOnboarding creates or refreshes the payment onboarding link
func (h *ShopHandler) StartOnboarding(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	response, err := h.shopService.StartOnboarding(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Complete onboarding at the returned URL",
		"data":    response,
	})
}

// GetOnboardingStatus reports the connected account's readiness
func (h *ShopHandler) GetOnboardingStatus(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	status, err := h.shopService.GetOnboardingStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": status,
	})
}

// ListPendingShops returns applications awaiting review (admin endpoint)
func (h *ShopHandler) ListPendingShops(c *gin.Context) {
	shops, err := h.shopService.ListPendingShops()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": shops,
	})
}

// ApproveShop approves a shop application (admin endpoint)
func (h *ShopHandler) ApproveShop(c *gin.Context) {
	shopID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sh, err := h.shopService.ApproveShop(shopID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop approved",
		"data":    sh,
	})
}

// RejectShop rejects a shop application (admin endpoint)
func (h *ShopHandler) RejectShop(c *gin.Context) {
	shopID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req shop.RejectShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.shopService.RejectShop(shopID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop rejected",
	})
}

// SuspendShop suspends an approved shop (admin endpoint)
func (h *ShopHandler) SuspendShop(c *gin.Context) {
	shopID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req shop.RejectShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.shopService.SuspendShop(shopID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop suspended",
	})
}
