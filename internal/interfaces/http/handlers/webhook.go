// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
)

// maxWebhookBody caps the webhook payload size
const maxWebhookBody = 64 * 1024

// WebhookHandler receives payment processor callbacks
type WebhookHandler struct {
	reconciler *payment.Reconciler
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler *payment.Reconciler) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
	}
}

// HandleStripeWebhook verifies and processes a webhook delivery. The raw
// body is read directly: signature verification covers the exact bytes sent.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	// A 4xx tells the processor to stop retrying (bad signature); a 5xx
	// requests redelivery (transient processing failure).
	signature := c.GetHeader("Stripe-Signature")
	if err := h.reconciler.HandleWebhook(payload, signature); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
	})
}
