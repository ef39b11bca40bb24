package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

// UserService owns the profile settings and follow edges that decide
// whether a first message becomes a request.
type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) SetPrivacy(ctx context.Context, userID uuid.UUID, isPrivate bool) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdatePrivacy(ctx, userID, isPrivate); err != nil {
		logger.Log.Error("Failed to update privacy",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	user.IsPrivate = isPrivate

	logger.Log.Info("Privacy updated",
		zap.String("user_id", userID.String()),
		zap.Bool("is_private", isPrivate),
	)
	return user, nil
}

func (s *UserService) Follow(ctx context.Context, followerID, targetID uuid.UUID) error {
	if followerID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}

	if err := s.userRepo.Follow(ctx, followerID, targetID); err != nil {
		return err
	}

	logger.Log.Info("User followed",
		zap.String("user_id", followerID.String()),
		zap.String("target_id", targetID.String()),
	)
	return nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, targetID uuid.UUID) error {
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	return s.userRepo.Unfollow(ctx, followerID, targetID)
}
