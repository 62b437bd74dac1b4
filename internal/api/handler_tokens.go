package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/mw"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/parse"
)

type putTokenRequest struct {
	Token       string `json:"token" binding:"required"`
	DeviceClass string `json:"device_class"`
	DeviceInfo  string `json:"device_info"`
}

// PutToken registers a device token for the authenticated user. The store
// retires any other active token of the same device class in the same
// transaction, so this is also the only dedup path clients ever need.
func (h *Handler) PutToken(c *gin.Context) {
	var req putTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The class hint is optional; without it the User-Agent decides.
	class := parse.ClassifyDevice(c.GetHeader("User-Agent"), req.DeviceClass)

	token := model.DeviceToken{
		Token:       req.Token,
		UserID:      c.GetString(mw.CtxUserID),
		DeviceClass: class,
		DeviceInfo:  req.DeviceInfo,
	}
	if err := h.store.RegisterToken(c.Request.Context(), &token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token.Token, "device_class": token.DeviceClass})
}

// GetCurrentToken returns the user's fresh active token for a device class,
// letting clients reuse it instead of minting a new endpoint.
func (h *Handler) GetCurrentToken(c *gin.Context) {
	class := model.DeviceClass(c.Query("device_class"))
	if !class.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid device_class is required"})
		return
	}

	token, err := h.store.FindFreshToken(c.Request.Context(), c.GetString(mw.CtxUserID), class, h.tokenFreshness)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if token == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no fresh token for this device class"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token.Token,
		"device_class": token.DeviceClass,
		"last_used_at": token.LastUsedAt,
	})
}

// DeleteTokens deactivates the user's active tokens, optionally narrowed to
// one device class via the device_class query parameter.
func (h *Handler) DeleteTokens(c *gin.Context) {
	class := model.DeviceClass(c.Query("device_class"))
	if class != "" && !class.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown device_class"})
		return
	}

	if err := h.store.DeactivateUserTokens(c.Request.Context(), c.GetString(mw.CtxUserID), class); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
