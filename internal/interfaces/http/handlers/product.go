// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	productService *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// ListProducts returns the public catalog with filters and pagination
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.productService.ListProducts(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": response,
	})
}

// GetProduct returns a single purchasable product
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetProduct(productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": p,
	})
}

// CreateProduct creates a listing under the seller's shop
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)

	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), sellerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created, pending approval",
		"data":    p,
	})
}

// ListMyProducts returns the seller's own listings
func (h *ProductHandler) ListMyProducts(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)

	products, err := h.productService.ListSellerProducts(sellerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
	})
}

// GetMyProduct returns one of the seller's own listings
func (h *ProductHandler) GetMyProduct(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetSellerProduct(sellerID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": p,
	})
}

// UpdateProduct applies a partial update to a seller's listing
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req product.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	p, err := h.productService.UpdateProduct(sellerID, productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"data":    p,
	})
}

// DeleteProduct removes a seller's listing
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(sellerID, productID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// ListLowStock returns the seller's listings below their alert threshold
func (h *ProductHandler) ListLowStock(c *gin.Context) {
	sellerID, _ := middleware.GetUserIDFromContext(c)

	products, err := h.productService.ListLowStockProducts(sellerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
	})
}

// ListPendingProducts returns listings awaiting moderation (admin endpoint)
func (h *ProductHandler) ListPendingProducts(c *gin.Context) {
	products, err := h.productService.ListPendingProducts()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
	})
}

// ApproveProduct approves a listing (admin endpoint)
func (h *ProductHandler) ApproveProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.ApproveProduct(productID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product approved",
	})
}

// RejectProduct rejects a listing (admin endpoint)
func (h *ProductHandler) RejectProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.RejectProduct(productID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product rejected",
	})
}
