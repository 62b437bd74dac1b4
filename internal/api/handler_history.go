package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/mw"
)

// GetOwnHistory returns the authenticated user's delivery history, newest
// first.
func (h *Handler) GetOwnHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.store.RecordsByUser(c.Request.Context(), c.GetString(mw.CtxUserID), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

// GetDeliveryHistory lets section admins diagnose delivery problems by
// trigger (related_id) or by recipient (user_id).
func (h *Handler) GetDeliveryHistory(c *gin.Context) {
	relatedID := c.Query("related_id")
	userID := c.Query("user_id")

	switch {
	case relatedID != "":
		records, err := h.store.RecordsByRelatedID(c.Request.Context(), relatedID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": records})
	case userID != "":
		limit, _ := strconv.Atoi(c.Query("limit"))
		records, err := h.store.RecordsByUser(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": records})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "related_id or user_id is required"})
	}
}
