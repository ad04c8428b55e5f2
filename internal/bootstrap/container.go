package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-assistant-be/internal/config"
	"ai-assistant-be/internal/controller"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/internal/repository/implementation"
	"ai-assistant-be/internal/repository/memory"
	"ai-assistant-be/internal/service"
	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/orchestrator"
	embeddingOllama "ai-assistant-be/pkg/embedding/ollama"
	"ai-assistant-be/pkg/llm"
	llmCache "ai-assistant-be/pkg/llm/cache"
	"ai-assistant-be/pkg/llm/factory"
	"ai-assistant-be/pkg/tools"
	"ai-assistant-be/pkg/tools/calendar"
	"ai-assistant-be/pkg/tools/meeting"
	"ai-assistant-be/pkg/tools/travel"

	pktNats "ai-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.Default()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model clients
	clientCache := llmCache.New(func(model string) (llm.LLMProvider, error) {
		return factory.NewLLMProvider(cfg.Ai.LLMProvider, model, cfg.Ai.OllamaBaseURL)
	})
	gateway := llm.NewGateway(clientCache, stdLogger)
	log.Printf("[INFO] Using LLM Provider: %s (router=%s simple=%s complex=%s)",
		cfg.Ai.LLMProvider, cfg.Ai.RouterModel, cfg.Ai.SimpleModel, cfg.Ai.ComplexModel)

	var providerHealth service.ProviderHealth
	if p, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.SimpleModel, cfg.Ai.OllamaBaseURL); err != nil {
		log.Printf("[WARN] No provider health check available: %v", err)
	} else if h, ok := p.(service.ProviderHealth); ok {
		providerHealth = h
	}

	embeddingProvider := embeddingOllama.NewOllamaEmbeddingProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.EmbeddingDimension,
	)

	// 4. Repositories
	chatMessageRepo := implementation.NewChatMessageRepository(db)
	recentEventRepo := implementation.NewRecentEventRepository(db)
	travelDocumentRepo := implementation.NewTravelDocumentRepository(db)
	userFactRepo := implementation.NewUserFactRepository(db)
	sessionRepo := implementation.NewAssistantSessionRepository(db)
	scratchRepo := memory.NewScratchRepository()

	// 5. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

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

	// 6. Calendar client and tool registry
	calendarClient := calendar.NewClient(cfg.Calendar.BaseURL, cfg.Calendar.Token, stdLogger)
	directory := calendar.NewDirectory(calendarClient, time.Duration(cfg.Calendar.DirectoryTTLSec)*time.Second, stdLogger)

	registry := tools.NewRegistry()
	registry.Register(&calendar.ListCalendarsTool{API: calendarClient})
	registry.Register(&calendar.ListEventsTool{API: calendarClient, Logger: stdLogger})
	registry.Register(&calendar.CreateEventTool{API: calendarClient, Logger: stdLogger})
	registry.Register(&calendar.DeleteEventTool{API: calendarClient})
	registry.Register(&calendar.VerifyRegistrationsTool{API: calendarClient})
	registry.Register(&travel.SearchTool{
		Embedder: embeddingProvider,
		Searcher: service.NewTravelSearcherAdapter(travelDocumentRepo),
		Logger:   stdLogger,
	})
	registry.Register(&meeting.SummarizeTool{
		Gateway: gateway,
		Model:   cfg.Ai.ComplexModel,
		Logger:  stdLogger,
	})

	// 7. Pipeline
	pipeline := orchestrator.New(
		gateway,
		registry,
		service.NewRecencyStoreAdapter(recentEventRepo),
		service.NewProfileStoreAdapter(userFactRepo),
		directory,
		dates.SystemClock(),
		orchestrator.Config{
			RouterModel:          cfg.Ai.RouterModel,
			SimpleModel:          cfg.Ai.SimpleModel,
			ComplexModel:         cfg.Ai.ComplexModel,
			FallbackCalendarName: cfg.Calendar.FallbackCalendar,
			MaxToolHops:          cfg.Ai.MaxToolHops,
		},
		stdLogger,
	)

	// 8. Services
	assistantService := service.NewAssistantService(
		pipeline,
		clientCache,
		scratchRepo,
		sessionRepo,
		chatMessageRepo,
		rdb,
		pubSub,
		natsPub,
		providerHealth,
		cfg.Ai.LLMProvider,
		sysLogger,
		time.Duration(cfg.App.TurnTimeoutSeconds)*time.Second,
	)

	consumerService := service.NewConsumerService(pubSub, gateway, cfg.Ai.SimpleModel, userFactRepo)

	// 9. Controllers
	assistantController := controller.NewAssistantController(assistantService)

	return &Container{
		AssistantController: assistantController,
		ConsumerService:     consumerService,
	}
}
