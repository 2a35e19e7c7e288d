package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"llmproxy/internal/ai"
	appsvc "llmproxy/internal/app"
	"llmproxy/internal/cache"
	"llmproxy/internal/config"
	"llmproxy/internal/model"
	mysqlClient "llmproxy/internal/platform/mysql"
	rabbitmqClient "llmproxy/internal/platform/rabbitmq"
	redisClient "llmproxy/internal/platform/redis"
	"llmproxy/internal/repository"
	"llmproxy/internal/store"
	"llmproxy/internal/vectorstore"
	"llmproxy/internal/worker"
)

const shutdownGrace = 10 * time.Second

type App struct {
	Config    *config.Config
	MySQL     *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	LogWorker *worker.LogPersistWorker

	Namespace *store.Namespace
	LLM       *ai.OpenAICompatibleClient

	// Vectors and Coordinator are nil when the vector store could not be
	// reached at boot. File operations and the proxy keep working; the
	// indexing routes answer 503.
	Vectors     *vectorstore.Storage
	Coordinator *appsvc.Coordinator

	StartedAt time.Time
}

// batchEmbedder adapts the OpenAI-compatible client to the coordinator's
// embedding interface, pinning the configured embedding model.
type batchEmbedder struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.EmbeddingConfig
}

func (e *batchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.PromptLog{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	logRepo := repository.NewPromptLogRepository(mysqlDB)
	logWorker := worker.NewLogPersistWorker(mqConn, logRepo, cfg.RabbitMQ.PromptLogQueue)
	if err := logWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start log persist worker failed: %w", err)
	}

	namespace, err := store.NewNamespace(cfg.Upload.Dir)
	if err != nil {
		return nil, fmt.Errorf("open upload namespace failed: %w", err)
	}

	llm := ai.NewOpenAICompatibleClient()

	app := &App{
		Config:    cfg,
		MySQL:     mysqlDB,
		Redis:     redisCli,
		MQConn:    mqConn,
		LogWorker: logWorker,
		Namespace: namespace,
		LLM:       llm,
		StartedAt: time.Now(),
	}

	app.initIndexEngine(ctx, cfg, namespace, llm, redisCli)
	return app, nil
}

// initIndexEngine brings up the vector store and the index coordinator. A
// failure here is logged and leaves both nil rather than aborting boot.
func (a *App) initIndexEngine(ctx context.Context, cfg *config.Config, namespace *store.Namespace, llm *ai.OpenAICompatibleClient, redisCli *redis.Client) {
	vectors := vectorstore.NewStorage(vectorstore.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	})
	if err := vectors.EnsureCollection(ctx, cfg.Qdrant.VectorSize); err != nil {
		log.Printf("indexing engine unavailable: %v", err)
		return
	}

	embedder := &batchEmbedder{
		client: llm,
		cfg: ai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		},
	}

	coordinator := appsvc.NewCoordinator(namespace, embedder, vectors, cache.NewStatusCache(redisCli), appsvc.CoordinatorConfig{
		IntervalMinutes: cfg.Index.AutoIntervalMinutes,
		ChunkSize:       cfg.Index.ChunkSize,
		ChunkOverlap:    cfg.Index.ChunkOverlap,
		EmbedBatchSize:  cfg.Index.EmbedBatchSize,
	})
	coordinator.StartScheduler()

	a.Vectors = vectors
	a.Coordinator = coordinator
}

func (a *App) Close() error {
	var closeErr error
	if a.Coordinator != nil {
		a.Coordinator.Close(shutdownGrace)
	}
	if a.LogWorker != nil {
		a.LogWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
