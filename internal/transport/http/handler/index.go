package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"llmproxy/internal/app"
	"llmproxy/internal/transport/http/response"
)

// IndexHandler exposes the index coordinator. The coordinator is nil when the
// indexing engine failed to initialize; every route then answers 503.
type IndexHandler struct {
	coordinator *app.Coordinator
}

type UpdateIndexConfigRequest struct {
	AutoIndexIntervalMinutes int `json:"auto_index_interval_minutes" binding:"required"`
}

func NewIndexHandler(coordinator *app.Coordinator) *IndexHandler {
	return &IndexHandler{coordinator: coordinator}
}

// Trigger starts an indexing run in the background. The 202 only means the
// run was accepted; progress is visible through Status.
func (h *IndexHandler) Trigger(c *gin.Context) {
	if h.coordinator == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, app.ErrEngineUnavailable.Error())
		return
	}
	if err := h.coordinator.Trigger(); err != nil {
		if errors.Is(err, app.ErrIndexingBusy) {
			response.Error(c, http.StatusConflict, response.CodeIndexingBusy, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "trigger indexing failed")
		return
	}
	response.Accepted(c, gin.H{"message": "indexing started"})
}

func (h *IndexHandler) Status(c *gin.Context) {
	if h.coordinator == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, app.ErrEngineUnavailable.Error())
		return
	}
	response.OK(c, h.coordinator.Status())
}

// UpdateConfig changes the auto-index interval and reschedules the next tick.
func (h *IndexHandler) UpdateConfig(c *gin.Context) {
	if h.coordinator == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, app.ErrEngineUnavailable.Error())
		return
	}
	var req UpdateIndexConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.coordinator.UpdateInterval(req.AutoIndexIntervalMinutes); err != nil {
		if errors.Is(err, app.ErrInvalidInterval) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update index config failed")
		return
	}
	response.OK(c, h.coordinator.Status())
}
