package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/internal/utils"
	"github.com/lify-app/lify-backend/pkg/apperr"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	IsPrivate   bool
}

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// TokenTTL is how long issued tokens stay valid
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtExpiration
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	start := time.Now()

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := input.Password

	logger.Log.Debug("Processing user registration",
		zap.String("username", username),
		zap.String("email", email),
	)

	// 1. Validate input
	if err := s.validateRegisterInput(username, email, password); err != nil {
		logger.Log.Warn("Registration validation failed",
			zap.String("username", username),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}

	// 2. Check if email already exists
	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to check email existence",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}
	if existingUser != nil {
		logger.Log.Warn("Email already exists",
			zap.String("email", email),
		)
		return nil, "", ErrEmailAlreadyExists
	}

	// 3. Check if username already exists
	existingUser, err = s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to check username existence",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, "", err
	}
	if existingUser != nil {
		logger.Log.Warn("Username already exists",
			zap.String("username", username),
		)
		return nil, "", ErrUsernameAlreadyExists
	}

	// 4. Hash password (Argon2)
	hashStart := time.Now()
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		logger.Log.Error("Failed to hash password",
			zap.Error(err),
		)
		return nil, "", apperr.Internal("failed to hash password", err)
	}
	hashDuration := time.Since(hashStart)

	logger.Log.Debug("Password hashed successfully",
		zap.Duration("hash_duration", hashDuration),
	)

	// 5. Create user
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
		IsPrivate:    input.IsPrivate,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		logger.Log.Error("Failed to create user in database",
			zap.String("username", username),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}

	// 6. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", apperr.Internal("failed to issue token", err)
	}

	logger.Log.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
		zap.String("email", email),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	start := time.Now()
	email = strings.ToLower(strings.TrimSpace(email))

	logger.Log.Debug("Processing user login",
		zap.String("email", email),
	)

	// 1. Get user by email
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to get user by email",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}
	if user == nil {
		logger.Log.Warn("Login failed: user not found",
			zap.String("email", email),
		)
		return nil, "", ErrInvalidCredentials
	}

	// 2. Verify password
	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", apperr.Internal("failed to verify password", err)
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		logger.Log.Warn("Login failed: invalid password",
			zap.String("email", email),
			zap.String("user_id", user.ID.String()),
		)
		return nil, "", ErrInvalidCredentials
	}

	// 3. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", apperr.Internal("failed to issue token", err)
	}

	logger.Log.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

func (s *AuthService) validateRegisterInput(username, email, password string) error {
	// Username validation
	if utf8.RuneCountInString(username) < 3 {
		return apperr.InvalidArg("username must be at least 3 characters")
	}
	if utf8.RuneCountInString(username) > 50 {
		return apperr.InvalidArg("username must be at most 50 characters")
	}

	// Email validation (regex)
	if !emailRegex.MatchString(email) {
		return apperr.InvalidArg("invalid email format")
	}
	if len(email) > 100 {
		return apperr.InvalidArg("email too long")
	}

	// Password validation
	if len(password) < 8 {
		return apperr.InvalidArg("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return apperr.InvalidArg("password too long")
	}

	return nil
}
