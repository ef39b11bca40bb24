package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/utils"
	"gorm.io/gorm"
)

const DefaultPassword = "Test123456"

// CreateTestUser inserts a user whose password is DefaultPassword and
// email is <username>@example.com.
func CreateTestUser(t *testing.T, db *gorm.DB, username string, isPrivate bool) *models.User {
	t.Helper()

	hashedPassword, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashedPassword,
		DisplayName:  username,
		IsPrivate:    isPrivate,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// CreateFollow makes follower follow following
func CreateFollow(t *testing.T, db *gorm.DB, follower, following *models.User) {
	t.Helper()

	edge := &models.Follow{FollowerID: follower.ID, FollowingID: following.ID}
	if err := db.Create(edge).Error; err != nil {
		t.Fatalf("Failed to create follow: %v", err)
	}
}

// HideConversationRow deletes one participant row, simulating data written
// before participants were tracked.
func HideConversationRow(t *testing.T, db *gorm.DB, conversationID, userID uuid.UUID) {
	t.Helper()

	err := db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&models.ConversationParticipant{}).Error
	if err != nil {
		t.Fatalf("Failed to delete participant row: %v", err)
	}
}
