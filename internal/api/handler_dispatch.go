package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

type dispatchRequest struct {
	TaskID    string     `json:"task_id" binding:"required"`
	SectionID string     `json:"section_id" binding:"required"`
	Title     string     `json:"title" binding:"required"`
	Body      string     `json:"body"`
	DueDate   *time.Time `json:"due_date"`
	Category  string     `json:"category" binding:"required"`
	RelatedID string     `json:"related_id"`
}

// DispatchNotification is the task-creation trigger: the academic CRUD layer
// calls it after a section-scoped task insert commits. The response carries
// the aggregate send counts; only audience-resolution failure turns the
// whole dispatch into an error.
func (h *Handler) DispatchNotification(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category := model.Category(req.Category)
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	summary, err := h.dispatcher.Dispatch(c.Request.Context(), dispatch.TaskEvent{
		TaskID:    req.TaskID,
		SectionID: req.SectionID,
		Title:     req.Title,
		Body:      req.Body,
		DueDate:   req.DueDate,
		Category:  category,
		RelatedID: req.RelatedID,
	})
	if err != nil {
		// The only whole-dispatch failure is audience resolution; per-token
		// failures are already folded into the summary.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
