package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"llmproxy/internal/ai"
	"llmproxy/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	mysqlStatus := h.checkMySQL(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()
	engineStatus := h.checkEngine()
	llmStatus := h.checkLLM(ctx)

	// The indexing engine or the upstream LLM being down degrades the service
	// but file operations keep working, so neither flips the overall status.
	allOK := mysqlStatus.OK && redisStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"mysql":    mysqlStatus,
			"redis":    redisStatus,
			"rabbitmq": rmqStatus,
			"engine":   engineStatus,
			"llm":      llmStatus,
		},
	})
}

func (h *HealthHandler) checkMySQL(ctx context.Context) dependencyStatus {
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkEngine() dependencyStatus {
	if h.app.Coordinator == nil {
		return dependencyStatus{OK: false, Message: "indexing engine unavailable"}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkLLM(ctx context.Context) dependencyStatus {
	cfg := ai.ChatConfig{
		BaseURL: h.app.Config.LLM.BaseURL,
		APIKey:  h.app.Config.LLM.APIKey,
	}
	if !h.app.LLM.Health(ctx, cfg) {
		return dependencyStatus{OK: false, Message: "upstream unreachable"}
	}
	return dependencyStatus{OK: true}
}
