package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair_OrderIndependent(t *testing.T) {
	for i := 0; i < 20; i++ {
		a, b := uuid.New(), uuid.New()

		a1, b1 := CanonicalPair(a, b)
		a2, b2 := CanonicalPair(b, a)

		assert.Equal(t, a1, a2)
		assert.Equal(t, b1, b2)
		assert.True(t, a1.String() <= b1.String())
	}
}

func TestConversation_Roles(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conv := &Conversation{UserAID: a, UserBID: b, InitiatedByUserID: &b}

	assert.True(t, conv.HasParticipant(a))
	assert.False(t, conv.HasParticipant(uuid.New()))
	assert.Equal(t, b, conv.OtherUser(a))
	assert.Equal(t, a, conv.OtherUser(b))
	assert.True(t, conv.IsInitiator(b))
	assert.False(t, conv.IsInitiator(a))

	conv.InitiatedByUserID = nil
	assert.False(t, conv.IsInitiator(b))
}

func TestParticipant_Hides(t *testing.T) {
	now := time.Now().UTC()
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	tests := []struct {
		name          string
		lastDeletedAt *time.Time
		lastMessageAt *time.Time
		want          bool
	}{
		{"never deleted", nil, &now, false},
		{"deleted after last message", &after, &now, true},
		{"deleted at last message", &now, &now, true},
		{"new message after delete", &before, &now, false},
		{"deleted with no messages", &now, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &ConversationParticipant{LastDeletedAt: tc.lastDeletedAt}
			c := &Conversation{LastMessageAt: tc.lastMessageAt}
			assert.Equal(t, tc.want, p.Hides(c))
		})
	}

	var missing *ConversationParticipant
	assert.False(t, missing.Hides(&Conversation{}))
}

func TestMessageType_Valid(t *testing.T) {
	assert.True(t, MessageTypeAudio.Valid())
	assert.False(t, MessageType("sticker").Valid())
}
