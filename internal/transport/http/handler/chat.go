package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"llmproxy/internal/app"
	"llmproxy/internal/model"
	"llmproxy/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Completions proxies an OpenAI-compatible completion request. The success
// body is the upstream response verbatim so existing OpenAI clients keep
// working against this endpoint.
func (h *ChatHandler) Completions(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if len(req.Messages) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "messages must not be empty")
		return
	}

	resp, err := h.chatService.Complete(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUpstream):
			response.Error(c, http.StatusBadGateway, response.CodeBadGateway, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat completion failed")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
