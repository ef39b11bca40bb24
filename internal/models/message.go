package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio:
		return true
	}
	return false
}

type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	SenderID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"senderId"`
	Content        *string     `gorm:"type:text" json:"content"`
	MediaURL       *string     `gorm:"type:text" json:"mediaUrl"`
	Type           MessageType `gorm:"type:varchar(16);not null" json:"type"`
	Duration       *int        `json:"duration,omitempty"`
	Read           bool        `gorm:"not null;default:false" json:"read"`
	Delivered      bool        `gorm:"not null;default:false" json:"delivered"`
	EditedAt       *time.Time  `json:"editedAt"`

	// Soft delete clears Content and MediaURL, the row stays in the thread
	DeletedAt *time.Time `json:"deletedAt"`

	ReplyToID *uuid.UUID `gorm:"type:uuid;index" json:"replyToId"`
	ReplyTo   *Message   `gorm:"foreignKey:ReplyToID" json:"replyTo,omitempty"`

	Reactions []MessageReaction `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"reactions"`

	CreatedAt time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// MessageReaction holds at most one emoji per (message, user).
type MessageReaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user,priority:1" json:"messageId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user,priority:2" json:"userId"`
	Emoji     string    `gorm:"type:varchar(32);not null" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *MessageReaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
