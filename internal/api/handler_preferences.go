package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/mw"
)

type preferencePayload struct {
	Enabled             *bool `json:"enabled"`
	TaskEnabled         *bool `json:"task_enabled"`
	AnnouncementEnabled *bool `json:"announcement_enabled"`
	ReminderEnabled     *bool `json:"reminder_enabled"`
	QuietHoursStart     *int  `json:"quiet_hours_start"`
	QuietHoursEnd       *int  `json:"quiet_hours_end"`
}

// GetPreferences returns the user's effective notification preferences;
// users who never saved any get the all-enabled defaults.
func (h *Handler) GetPreferences(c *gin.Context) {
	pref, err := h.store.GetPreference(c.Request.Context(), c.GetString(mw.CtxUserID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preferenceResponse(pref))
}

// PutPreferences upserts the user's preference row. Omitted toggles fall
// back to their current effective value, so partial updates are safe.
func (h *Handler) PutPreferences(c *gin.Context) {
	var req preferencePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.QuietHoursStart == nil) != (req.QuietHoursEnd == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quiet_hours_start and quiet_hours_end must be set together"})
		return
	}
	for _, v := range []*int{req.QuietHoursStart, req.QuietHoursEnd} {
		if v != nil && (*v < 0 || *v >= 24*60) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiet hours must be minutes within one day"})
			return
		}
	}

	userID := c.GetString(mw.CtxUserID)
	pref, err := h.store.GetPreference(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}
	if req.TaskEnabled != nil {
		pref.TaskEnabled = *req.TaskEnabled
	}
	if req.AnnouncementEnabled != nil {
		pref.AnnouncementEnabled = *req.AnnouncementEnabled
	}
	if req.ReminderEnabled != nil {
		pref.ReminderEnabled = *req.ReminderEnabled
	}
	if req.QuietHoursStart != nil {
		pref.QuietHoursStart = req.QuietHoursStart
		pref.QuietHoursEnd = req.QuietHoursEnd
	}

	if err := h.store.SavePreference(c.Request.Context(), &pref); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preferenceResponse(pref))
}

func preferenceResponse(p model.NotificationPreference) gin.H {
	return gin.H{
		"enabled":              p.Enabled,
		"task_enabled":         p.TaskEnabled,
		"announcement_enabled": p.AnnouncementEnabled,
		"reminder_enabled":     p.ReminderEnabled,
		"quiet_hours_start":    p.QuietHoursStart,
		"quiet_hours_end":      p.QuietHoursEnd,
	}
}
