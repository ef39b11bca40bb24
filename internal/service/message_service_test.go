package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMessagePreview(t *testing.T) {
	long := strings.Repeat("ş", PreviewLength+10)
	short := "see you at 8"

	tests := []struct {
		name    string
		content *string
		typ     models.MessageType
		want    string
	}{
		{"short text", &short, models.MessageTypeText, short},
		{"long text cut by runes", &long, models.MessageTypeText, strings.Repeat("ş", PreviewLength)},
		{"image", nil, models.MessageTypeImage, "[image]"},
		{"video", nil, models.MessageTypeVideo, "[video]"},
		{"caption wins over media", &short, models.MessageTypeImage, short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messagePreview(tt.content, tt.typ))
		})
	}
}

func TestValidateEmoji(t *testing.T) {
	valid := []string{"👍", "❤️", " 🔥 ", "👨‍👩‍👧", "🇹🇷", "!", "1️⃣", "ℹ️"}
	for _, e := range valid {
		got, err := ValidateEmoji(e)
		assert.NoError(t, err, e)
		assert.Equal(t, strings.TrimSpace(e), got)
	}

	invalid := []string{"", "   ", "ok", "a👍", "1", "👍 👍", "👍👍👍👍👍👍👍👍👍", "日本", "é", "٣", "👍é"}
	for _, e := range invalid {
		_, err := ValidateEmoji(e)
		assert.ErrorIs(t, err, ErrInvalidEmoji, e)
	}
}

func TestCheckCanSend(t *testing.T) {
	alice, carol := uuid.New(), uuid.New()
	request := func(status models.ConversationStatus) *models.Conversation {
		return &models.Conversation{
			UserAID:           alice,
			UserBID:           carol,
			Status:            status,
			InitiatedByUserID: &alice,
			RequestReceiverID: &carol,
		}
	}

	assert.NoError(t, checkCanSend(nil, alice))
	assert.NoError(t, checkCanSend(&models.Conversation{Status: models.StatusNormal}, carol))
	assert.NoError(t, checkCanSend(request(models.StatusRequest), alice))
	assert.ErrorIs(t, checkCanSend(request(models.StatusRequest), carol), ErrAcceptRequired)
	assert.ErrorIs(t, checkCanSend(request(models.StatusRejected), alice), ErrConversationRejected)
	assert.ErrorIs(t, checkCanSend(request(models.StatusRejected), carol), ErrConversationRejected)
	assert.NoError(t, checkCanSend(request(models.StatusNormal), carol))
}

func TestTrimmed(t *testing.T) {
	blank := "  \t"
	padded := "  hi "

	assert.Nil(t, trimmed(nil))
	assert.Nil(t, trimmed(&blank))
	assert.Equal(t, "hi", *trimmed(&padded))
}
