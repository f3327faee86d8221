package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"groundnote/internal/ai"
	appsvc "groundnote/internal/app"
	"groundnote/internal/bootstrap"
	"groundnote/internal/cache"
	"groundnote/internal/platform/rabbitmq"
	"groundnote/internal/repository"
	"groundnote/internal/transport/http/handler"
	"groundnote/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	logger := slog.Default()
	cfg := app.Config

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	// The chunk store is chosen once at boot and never swapped at runtime.
	var store appsvc.ChunkStore
	if cfg.RAG.Store == "memory" {
		store = repository.NewMemoryStore()
	} else {
		store = repository.NewDocumentStore(app.MySQL)
	}

	embedder := ai.NewEmbeddingClient(ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
		Timeout: time.Duration(cfg.LLM.EmbedTimeoutSeconds) * time.Second,
	})
	generator := ai.NewChatClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.CompleteTimeoutSeconds) * time.Second,
	})

	chunker := appsvc.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	ingestor := appsvc.NewIngestor(store, embedder, chunker, cfg.MaxUploadBytes(), cfg.RAG.EmbeddingDimension, logger)
	engine := appsvc.NewRetrievalEngine(embedder, cfg.RAG.TopK, cfg.RAG.ScoreThreshold, logger)
	orchestrator := appsvc.NewOrchestrator(generator, logger)

	publisher := rabbitmq.NewMessagePublisher(app.MQConn, cfg.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		store,
		engine,
		orchestrator,
		publisher,
		historyCache,
		logger,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(ingestor, store)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.GET("/history", chatHandler.GetHistory)

	docGroup := v1.Group("/documents")
	docGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	docGroup.POST("/upload", documentHandler.Upload)
	docGroup.POST("", documentHandler.CreateDocument)
	docGroup.GET("", documentHandler.ListDocuments)
	docGroup.GET("/:id", documentHandler.GetDocument)
	docGroup.DELETE("/:id", documentHandler.DeleteDocument)

	return router
}
