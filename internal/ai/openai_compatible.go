package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"llmproxy/internal/model"
)

// ChatConfig holds API settings for the upstream OpenAI-compatible endpoint.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// ChatCompletion forwards the full completion request upstream and returns
// the upstream response unchanged, so the proxy can rewrite message contents
// without losing fields.
func (c *OpenAICompatibleClient) ChatCompletion(ctx context.Context, cfg ChatConfig, request model.ChatRequest) (*model.ChatResponse, error) {
	if request.Model == "" {
		request.Model = cfg.Model
	}
	bodyBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build chat request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed model.ChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse chat json failed: %w", err)
	}
	return &parsed, nil
}

// Health reports whether the upstream endpoint is reachable.
func (c *OpenAICompatibleClient) Health(ctx context.Context, cfg ChatConfig) bool {
	url := strings.TrimRight(cfg.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
