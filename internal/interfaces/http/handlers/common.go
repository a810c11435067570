// internal/interfaces/http/handlers/common.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// respondError maps a service error to its HTTP status. Unclassified errors
// surface as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusFor(err)
	message := err.Error()
	if status >= 500 {
		message = "Internal server error"
	}
	c.JSON(status, gin.H{
		"error": message,
	})
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(400, gin.H{
			"error": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return uint(id), true
}
