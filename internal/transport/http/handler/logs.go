package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"llmproxy/internal/model"
	"llmproxy/internal/repository"
	"llmproxy/internal/transport/http/response"
)

type LogHandler struct {
	logRepo *repository.PromptLogRepository
}

func NewLogHandler(logRepo *repository.PromptLogRepository) *LogHandler {
	return &LogHandler{logRepo: logRepo}
}

// Query lists persisted prompt logs, newest first, filtered by the
// start_date, end_date and search_term query parameters.
func (h *LogHandler) Query(c *gin.Context) {
	var query model.PromptLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid query parameters")
		return
	}

	page, err := h.logRepo.Query(query)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "query prompt logs failed")
		return
	}
	response.OK(c, page)
}
