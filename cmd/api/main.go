package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/analysis"
	"github.com/novapay/rag-chat-backend/internal/analytics"
	"github.com/novapay/rag-chat-backend/internal/api/handlers"
	"github.com/novapay/rag-chat-backend/internal/auth"
	"github.com/novapay/rag-chat-backend/internal/chat"
	"github.com/novapay/rag-chat-backend/internal/flow"
	"github.com/novapay/rag-chat-backend/internal/llm"
	"github.com/novapay/rag-chat-backend/internal/metrics"
	"github.com/novapay/rag-chat-backend/internal/middleware/ratelimit"
	"github.com/novapay/rag-chat-backend/internal/middleware/security"
	"github.com/novapay/rag-chat-backend/internal/middleware/validation"
	"github.com/novapay/rag-chat-backend/internal/storage/sqlite"
	"github.com/novapay/rag-chat-backend/pkg/config"
	appLogger "github.com/novapay/rag-chat-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RAG Chat API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	store, err := analytics.NewStore(analytics.StoreConfig{
		Endpoint:    cfg.OpenSearch.Endpoint,
		Username:    cfg.OpenSearch.Username,
		Password:    cfg.OpenSearch.Password,
		Index:       cfg.OpenSearch.Index,
		InsecureTLS: cfg.OpenSearch.InsecureTLS,
	})
	if err != nil {
		appLogger.Fatal("Failed to create analytics store", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second,
	)
	analyzer := analysis.NewAnalyzer(llmClient)
	recorder := analytics.NewRecorder(analyzer, store, llmClient.Model(), cfg.Flow.FlowID)

	flowClient := flow.NewClient(
		cfg.Flow.URL,
		cfg.Flow.FlowID,
		cfg.Flow.APIKey,
		time.Duration(cfg.Flow.TimeoutSec)*time.Second,
		cfg.Flow.MaxRetries,
	)

	gateway := chat.NewGateway(flowClient, sqliteClient, recorder, cfg.Flow.FlowID)

	sessionTTL := time.Duration(cfg.Auth.SessionTTLHrs) * time.Hour
	var sessionStore auth.Store
	if cfg.Redis.Enabled {
		redisStore, err := auth.NewRedisStore(
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, sessionTTL,
		)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisStore.Close()
		sessionStore = redisStore
	} else {
		sessionStore = auth.NewMemoryStore(sessionTTL)
	}
	gate := auth.NewGate(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, sessionStore)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Session-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		IsDevelopment:  !cfg.Auth.CookieSecure,
	}))

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		})
		defer limiter.Stop()
		app.Use(limiter.Middleware())
	}

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(gateway)
	analyticsHandler := handlers.NewAnalyticsHandler(store)
	authHandler := handlers.NewAuthHandler(gate, cfg.Auth.CookieName, cfg.Auth.CookieSecure)
	wsHandler := handlers.NewWebSocketHandler(gateway)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)

	api.Post("/auth/login", authHandler.Login)
	api.Get("/auth/check", authHandler.Check)
	api.Post("/auth/logout", authHandler.Logout)

	admin := api.Group("/analytics", authHandler.RequireAdmin())
	admin.Get("/stats", analyticsHandler.GetStats)
	admin.Get("/needs-improvement", analyticsHandler.GetNeedsImprovement)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
