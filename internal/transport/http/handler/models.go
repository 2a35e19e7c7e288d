package handler

import (
	"github.com/gin-gonic/gin"

	"llmproxy/internal/model"
	"llmproxy/internal/transport/http/response"
)

type ModelHandler struct{}

func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

// modelCatalogue is the static list of upstream models the proxy advertises.
// Routing between them happens at the upstream gateway, not here.
var modelCatalogue = []model.ModelInfo{
	{
		ID:          "claude-3-5-sonnet-20241022",
		Name:        "Claude 3.5 Sonnet",
		Provider:    "Anthropic",
		Description: "Latest Claude 3.5 Sonnet, balanced performance",
	},
	{
		ID:          "claude-3-opus-20240229",
		Name:        "Claude 3 Opus",
		Provider:    "Anthropic",
		Description: "Most capable Claude model",
	},
	{
		ID:          "claude-3-haiku-20240307",
		Name:        "Claude 3 Haiku",
		Provider:    "Anthropic",
		Description: "Fast, low-cost Claude model",
	},
	{
		ID:          "gpt-4-turbo-preview",
		Name:        "GPT-4 Turbo",
		Provider:    "OpenAI",
		Description: "Latest GPT-4",
	},
	{
		ID:          "gpt-4",
		Name:        "GPT-4",
		Provider:    "OpenAI",
		Description: "OpenAI's most capable model",
	},
	{
		ID:          "gpt-3.5-turbo",
		Name:        "GPT-3.5 Turbo",
		Provider:    "OpenAI",
		Description: "Fast and low cost",
	},
}

func (h *ModelHandler) List(c *gin.Context) {
	response.OK(c, gin.H{"models": modelCatalogue})
}
