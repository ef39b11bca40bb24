package main

import (
	"context"
	"os"

	"github.com/lify-app/lify-backend/internal/config"
	"github.com/lify-app/lify-backend/internal/database"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

type demoUser struct {
	username  string
	isPrivate bool
}

// Seeds a few demo accounts: alice and bob are public, carol is private
// and followed by alice, so alice reaches her directly while bob lands
// in her request inbox.
func main() {
	cfg := config.Load()
	if err := logger.Init(true); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := database.Connect(cfg); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "Demo123456"
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(database.DB)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)

	users := make(map[string]*models.User)
	for _, demo := range []demoUser{{"alice", false}, {"bob", false}, {"carol", true}} {
		existing, err := userRepo.GetUserByUsername(ctx, demo.username)
		if err != nil {
			logger.Log.Fatal("Failed to look up user", zap.String("username", demo.username), zap.Error(err))
		}
		if existing != nil {
			logger.Log.Info("User already exists", zap.String("username", demo.username))
			users[demo.username] = existing
			continue
		}

		user, _, err := authService.Register(ctx, service.RegisterInput{
			Username:  demo.username,
			Email:     demo.username + "@example.com",
			Password:  password,
			IsPrivate: demo.isPrivate,
		})
		if err != nil {
			logger.Log.Fatal("Failed to create user", zap.String("username", demo.username), zap.Error(err))
		}
		users[demo.username] = user
		logger.Log.Info("User created",
			zap.String("username", user.Username),
			zap.Bool("is_private", user.IsPrivate),
		)
	}

	if err := userRepo.Follow(ctx, users["alice"].ID, users["carol"].ID); err != nil {
		logger.Log.Fatal("Failed to create follow", zap.Error(err))
	}
	logger.Log.Info("Seed completed", zap.Int("users", len(users)))
}
