package bootstrap

import (
	"context"
	"log"

	"docuchat-be/internal/config"
	"docuchat-be/internal/controller"
	"docuchat-be/internal/handler"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/pkg/mailer"
	"docuchat-be/internal/repository/implementation"
	"docuchat-be/internal/repository/memory"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/internal/service"
	"docuchat-be/internal/websocket"
	"docuchat-be/pkg/chunker"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/llm/factory"
	"docuchat-be/pkg/vectorstore"

	pktNats "docuchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	ConversationController controller.IConversationController

	// Background Services (Exposed for main.go to run)
	ProgressConsumerService service.IProgressConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// In-memory cache of uploaded document metadata
	uploadRepo := memory.NewUploadRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Indexing Pipeline
	progressNotifier := service.NewProgressPublisher(pubSub, cfg.Index.ProgressTopic)

	embeddingRepo := implementation.NewConversationEmbeddingRepository(db)
	collectionStore := implementation.NewCollectionStore(embeddingRepo)
	indexManager := vectorstore.NewManager(
		collectionStore,
		embeddingProvider,
		progressNotifier,
		sysLogger,
		cfg.Index.BatchSize,
	)
	ingester := chunker.NewIngester(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)

	// 5. Services
	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	conversationService := service.NewConversationService(
		uowFactory,
		indexManager,
		ingester,
		llmProvider,
		progressNotifier,
		uploadRepo,
		natsPub,
		sysLogger,
		cfg.Index.QueryK,
		cfg.Upload.Dir,
	)

	// Tear down a user's indexes when their last socket goes away.
	wsHub.SetDisconnectListener(func(userID uuid.UUID) {
		conversationService.CleanupUserSessions(context.Background(), userID)
	})
	go wsHub.Run()

	// 5.5 Notification System
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsHub, wsLogger) // Hub implements NotificationDelivery

	// Start Service (Worker)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, wsHub, wsLogger)

	progressConsumer := service.NewProgressConsumerService(pubSub, cfg.Index.ProgressTopic, wsHub)

	// 6. Controllers
	return &Container{
		NotificationHandler:    notifHandler,
		WebSocketHub:           wsHub,
		AuthController:         controller.NewAuthController(authService),
		ConversationController: controller.NewConversationController(conversationService, cfg.Upload.Dir, int64(cfg.Upload.MaxSizeBytes)),

		ProgressConsumerService: progressConsumer,
	}
}
