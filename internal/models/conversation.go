package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationStatus string

const (
	StatusNormal   ConversationStatus = "NORMAL"
	StatusRequest  ConversationStatus = "REQUEST"
	StatusRejected ConversationStatus = "REJECTED"
)

// Conversation is the single record shared by a pair of users. UserAID is
// always the lexicographically smaller id (see CanonicalPair).
type Conversation struct {
	ID      uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:1" json:"userAId"`
	UserBID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:2;index" json:"userBId"`
	Status  ConversationStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	// Request lifecycle, set only for conversations that started as REQUEST
	InitiatedByUserID *uuid.UUID `gorm:"type:uuid" json:"initiatedByUserId"`
	RequestSenderID   *uuid.UUID `gorm:"type:uuid" json:"requestSenderId"`
	RequestReceiverID *uuid.UUID `gorm:"type:uuid" json:"requestReceiverId"`
	RequestCreatedAt  *time.Time `json:"requestCreatedAt"`
	RequestAcceptedAt *time.Time `json:"requestAcceptedAt"`
	RequestRejectedAt *time.Time `json:"requestRejectedAt"`

	LastMessageAt      *time.Time `gorm:"index" json:"lastMessageAt"`
	LastMessagePreview *string    `gorm:"type:varchar(64)" json:"lastMessagePreview"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CanonicalPair orders two user ids so that the smaller string comes first.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherUser returns the participant that is not userID.
func (c *Conversation) OtherUser(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

func (c *Conversation) IsInitiator(userID uuid.UUID) bool {
	return c.InitiatedByUserID != nil && *c.InitiatedByUserID == userID
}

// Participant returns the participant row of userID when it was preloaded.
func (c *Conversation) Participant(userID uuid.UUID) *ConversationParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// ConversationParticipant carries per-user state of a shared conversation.
type ConversationParticipant struct {
	ConversationID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"conversationId"`
	UserID         uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"userId"`
	LastDeletedAt  *time.Time `json:"lastDeletedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Hides reports whether the soft-delete watermark covers the latest
// activity of the conversation.
func (p *ConversationParticipant) Hides(c *Conversation) bool {
	if p == nil || p.LastDeletedAt == nil {
		return false
	}
	if c.LastMessageAt == nil {
		return true
	}
	return !c.LastMessageAt.After(*p.LastDeletedAt)
}
