package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/config"
	"github.com/lify-app/lify-backend/internal/database"
	"github.com/lify-app/lify-backend/internal/handler"
	"github.com/lify-app/lify-backend/internal/middleware"
	"github.com/lify-app/lify-backend/internal/outbox"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Connect(cfg); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Events the broker refuses are parked here
	box, err := outbox.NewOutbox(cfg.OutboxPath)
	if err != nil {
		logger.Log.Fatal("Failed to open outbox", zap.String("path", cfg.OutboxPath), zap.Error(err))
	}
	defer box.Close()

	redisBroker, err := broker.NewRedisMessageBroker(cfg.RedisURL, cfg.EventsChannel)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Redis broker", zap.Error(err))
	}
	defer redisBroker.Close()

	dispatcher := broker.NewDispatcher(redisBroker, box)
	dispatcher.StartRetry(ctx, cfg.OutboxRetryInterval)

	// Repositories
	db := database.DB
	tx := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	conversationService := service.NewConversationService(tx, convRepo, userRepo, dispatcher)
	messageService := service.NewMessageService(tx, messageRepo, convRepo, userRepo, conversationService, dispatcher)
	userService := service.NewUserService(userRepo)

	authLimiter := middleware.NewRateLimiter(redisBroker.Client(), middleware.RateLimiterConfig{
		Scope:       "auth",
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
	})
	sendLimiter := middleware.NewRateLimiter(redisBroker.Client(), middleware.RateLimiterConfig{
		Scope:       "send",
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
	})

	hub := handler.NewHub()
	events, err := redisBroker.Subscribe(ctx)
	if err != nil {
		logger.Log.Fatal("Failed to subscribe to events", zap.Error(err))
	}
	go hub.Run(ctx, events)

	router := handler.NewRouter(handler.Handlers{
		Auth:          handler.NewAuthHandler(authService, cfg.IsProduction()),
		Messages:      handler.NewMessageHandler(messageService),
		Conversations: handler.NewConversationHandler(conversationService),
		Users:         handler.NewUserHandler(userService),
		WebSocket:     handler.NewWebSocketHandler(hub, messageService, sendLimiter, cfg.CORSAllowedOrigins),
	}, handler.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		IsProduction:   cfg.IsProduction(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AuthLimiter:    authLimiter,
		SendLimiter:    sendLimiter,
		Health: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(pingCtx); err != nil {
				return err
			}
			return redisBroker.Client().Ping(pingCtx).Err()
		},
	})

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting",
			zap.String("addr", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
