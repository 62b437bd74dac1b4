package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports process liveness for load balancers and operators.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
