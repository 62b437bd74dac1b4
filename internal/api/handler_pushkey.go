package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPushPublicKey returns the VAPID public key web clients need to create
// their PushSubscription.
func (h *Handler) GetPushPublicKey(c *gin.Context) {
	if h.pushPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.pushPublicKey})
}
