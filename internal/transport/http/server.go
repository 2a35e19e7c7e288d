package http

import (
	"github.com/gin-gonic/gin"

	"llmproxy/internal/ai"
	appsvc "llmproxy/internal/app"
	"llmproxy/internal/bootstrap"
	"llmproxy/internal/filters"
	"llmproxy/internal/platform/rabbitmq"
	"llmproxy/internal/repository"
	"llmproxy/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	fileService := appsvc.NewFileService(app.Namespace, app.Coordinator)

	// A nil *Storage must stay an untyped nil in the interface field so the
	// chat service's nil check holds.
	var searcher appsvc.ContextSearcher
	if app.Vectors != nil {
		searcher = app.Vectors
	}
	publisher := rabbitmq.NewLogPublisher(app.MQConn, app.Config.RabbitMQ.PromptLogQueue)
	chatService := appsvc.NewChatService(
		filters.NewPIIDetector(),
		app.LLM,
		ai.ChatConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.Model,
		},
		ai.EmbeddingConfig{
			BaseURL: app.Config.Embedding.BaseURL,
			APIKey:  app.Config.Embedding.APIKey,
			Model:   app.Config.Embedding.Model,
		},
		searcher,
		publisher,
	)
	logRepo := repository.NewPromptLogRepository(app.MySQL)

	fileHandler := handler.NewFileHandler(fileService, int64(app.Config.Upload.MaxFileSizeMB)<<20)
	indexHandler := handler.NewIndexHandler(app.Coordinator)
	chatHandler := handler.NewChatHandler(chatService)
	logHandler := handler.NewLogHandler(logRepo)
	modelHandler := handler.NewModelHandler()

	rag := router.Group("/rag")
	rag.POST("/upload", fileHandler.Upload)
	rag.POST("/mkdir", fileHandler.CreateDirectory)
	rag.GET("/files", fileHandler.List)
	rag.GET("/files/*path", fileHandler.Get)
	rag.POST("/files/*path", fileHandler.Post)
	rag.DELETE("/files/*path", fileHandler.Delete)
	rag.POST("/index", indexHandler.Trigger)
	rag.GET("/status", indexHandler.Status)
	rag.PUT("/config", indexHandler.UpdateConfig)

	v1 := router.Group("/api/v1")
	v1.POST("/chat/completions", chatHandler.Completions)
	v1.GET("/models", modelHandler.List)
	v1.GET("/logs", logHandler.Query)

	return router
}
