package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(err, "userRepo.CreateUser")
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "userRepo.GetUserByEmail", "email = ?", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "userRepo.GetUserByUsername", "username = ?", username)
}

// GetUserByID returns nil, nil when the user does not exist
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "userRepo.GetUserByID", "id = ?", id)
}

func (r *UserRepository) first(ctx context.Context, op, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	// GORM automatically excludes soft-deleted users (deleted_at IS NOT NULL)
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, op)
	}
	return &user, nil
}

// GetUsersByIDs loads users keyed by id; unknown ids are simply absent
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	out := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "userRepo.GetUsersByIDs")
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func (r *UserRepository) UpdatePrivacy(ctx context.Context, id uuid.UUID, isPrivate bool) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_private", isPrivate).Error
	if err != nil {
		return errors.Wrap(err, "userRepo.UpdatePrivacy")
	}
	return nil
}

func (r *UserRepository) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "userRepo.IsFollowing")
	}
	return count > 0, nil
}

// Follow is idempotent: an existing edge is left untouched
func (r *UserRepository) Follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
	if err != nil {
		return errors.Wrap(err, "userRepo.Follow")
	}
	return nil
}

func (r *UserRepository) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return errors.Wrap(err, "userRepo.Unfollow")
	}
	return nil
}
