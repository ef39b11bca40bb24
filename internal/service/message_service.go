package service

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxContentLength  = 5000
	PreviewLength     = 50
	DefaultPageLimit  = 50
	MaxPageLimit      = 100
	maxEmojiRunes     = 8
	maxEmojiByteWidth = 32

	variationSelector16 = '\uFE0F'
	combiningKeycap     = '\u20E3'
)

type SendInput struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     *string
	MediaURL    *string
	Type        models.MessageType
	Duration    *int
	ReplyToID   *uuid.UUID
}

type SendResult struct {
	Conversation       *models.Conversation      `json:"conversation"`
	Message            *models.Message           `json:"message"`
	ConversationStatus models.ConversationStatus `json:"conversationStatus"`
	IsRequest          bool                      `json:"isRequest"`
	IsInitiator        bool                      `json:"isInitiator"`
}

type ListQuery struct {
	Limit  int
	Cursor *uuid.UUID
	Since  *time.Time
}

// MessagePage is returned oldest to newest. NextCursor points at the oldest
// message of the page when older ones exist.
type MessagePage struct {
	ConversationID *uuid.UUID       `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
	NextCursor     *uuid.UUID       `json:"nextCursor"`
}

type MessageService struct {
	tx            *repository.TxManager
	messageRepo   *repository.MessageRepository
	convRepo      *repository.ConversationRepository
	userRepo      *repository.UserRepository
	conversations *ConversationService
	emitter       broker.Emitter
	now           Clock
}

func NewMessageService(
	tx *repository.TxManager,
	messageRepo *repository.MessageRepository,
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
	conversations *ConversationService,
	emitter broker.Emitter,
) *MessageService {
	return &MessageService{
		tx:            tx,
		messageRepo:   messageRepo,
		convRepo:      convRepo,
		userRepo:      userRepo,
		conversations: conversations,
		emitter:       emitter,
		now:           systemClock,
	}
}

func (s *MessageService) SetClock(c Clock) {
	s.now = c
}

// Send stores a message from input.SenderID to input.RecipientID, creating
// the conversation on first contact.
func (s *MessageService) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	start := time.Now()

	content := trimmed(input.Content)
	mediaURL := trimmed(input.MediaURL)

	if content == nil && mediaURL == nil {
		return nil, ErrEmptyMessage
	}
	if content != nil && utf8.RuneCountInString(*content) > MaxContentLength {
		return nil, ErrMessageTooLong
	}
	if input.SenderID == input.RecipientID {
		return nil, ErrSelfMessage
	}
	if input.Duration != nil && *input.Duration < 0 {
		return nil, ErrInvalidDuration
	}

	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageTypeText
		if content == nil {
			msgType = models.MessageTypeImage
		}
	}
	if !msgType.Valid() {
		return nil, ErrInvalidMessageType
	}

	var (
		conv    *models.Conversation
		message *models.Message
	)
	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		convRepo := s.convRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)
		messageRepo := s.messageRepo.WithTx(tx)

		recipient, err := userRepo.GetUserByID(ctx, input.RecipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrUserNotFound
		}

		existing, err := convRepo.FindByPair(ctx, input.SenderID, input.RecipientID)
		if err != nil {
			return err
		}
		if err := checkCanSend(existing, input.SenderID); err != nil {
			return err
		}

		conv, err = s.conversations.resolveWith(ctx, convRepo, userRepo, input.SenderID, recipient, existing)
		if err != nil {
			return err
		}

		var replyTo *models.Message
		if input.ReplyToID != nil {
			replyTo, err = messageRepo.GetMessageByID(ctx, *input.ReplyToID)
			if err != nil {
				return err
			}
			if replyTo == nil || replyTo.ConversationID != conv.ID {
				return ErrInvalidReplyTarget
			}
		}

		now := s.now()
		message = &models.Message{
			ConversationID: conv.ID,
			SenderID:       input.SenderID,
			Content:        content,
			MediaURL:       mediaURL,
			Type:           msgType,
			Duration:       input.Duration,
			ReplyToID:      input.ReplyToID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := messageRepo.CreateMessage(ctx, message); err != nil {
			return err
		}
		message.ReplyTo = replyTo
		message.Reactions = []models.MessageReaction{}

		preview := messagePreview(content, msgType)
		err = convRepo.Update(ctx, conv.ID, map[string]interface{}{
			"last_message_at":      now,
			"last_message_preview": preview,
		})
		if err != nil {
			return err
		}
		conv.LastMessageAt = &now
		conv.LastMessagePreview = &preview
		return nil
	})
	if err != nil {
		logger.Log.Warn("Failed to send message",
			zap.String("sender_id", input.SenderID.String()),
			zap.String("recipient_id", input.RecipientID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	payload := map[string]interface{}{
		"conversation": conv,
		"message":      message,
	}
	recipientEvent := broker.EventMessageNew
	if conv.Status == models.StatusRequest {
		recipientEvent = broker.EventRequestNew
	}
	s.emitter.Emit(ctx, input.SenderID, broker.EventMessageNew, payload)
	s.emitter.Emit(ctx, input.RecipientID, recipientEvent, payload)

	logger.Log.Info("Message sent",
		zap.String("message_id", message.ID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("sender_id", input.SenderID.String()),
		zap.String("status", string(conv.Status)),
		zap.Duration("duration", time.Since(start)),
	)

	return &SendResult{
		Conversation:       conv,
		Message:            message,
		ConversationStatus: conv.Status,
		IsRequest:          conv.Status == models.StatusRequest,
		IsInitiator:        conv.IsInitiator(input.SenderID),
	}, nil
}

// checkCanSend applies the request blocking rules. A nil conversation is
// always open.
func checkCanSend(conv *models.Conversation, senderID uuid.UUID) error {
	if conv == nil || conv.InitiatedByUserID == nil {
		return nil
	}
	switch conv.Status {
	case models.StatusRejected:
		return ErrConversationRejected
	case models.StatusRequest:
		if !conv.IsInitiator(senderID) {
			return ErrAcceptRequired
		}
	}
	return nil
}

// ListWith pages through the conversation between userID and otherUserID.
func (s *MessageService) ListWith(ctx context.Context, userID, otherUserID uuid.UUID, q ListQuery) (*MessagePage, error) {
	other, err := s.userRepo.GetUserByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	page := &MessagePage{Messages: []models.Message{}}

	conv, err := s.convRepo.FindByPair(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return page, nil
	}
	page.ConversationID = &conv.ID

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var before *models.Message
	if q.Cursor != nil {
		before, err = s.messageRepo.GetMessageByID(ctx, *q.Cursor)
		if err != nil {
			return nil, err
		}
		if before == nil || before.ConversationID != conv.ID {
			return nil, ErrInvalidCursor
		}
	}

	messages, err := s.messageRepo.ListPage(ctx, repository.PageQuery{
		ConversationID: conv.ID,
		Before:         before,
		Since:          q.Since,
		Limit:          limit + 1,
	})
	if err != nil {
		return nil, err
	}

	if len(messages) > limit {
		messages = messages[:limit]
		oldest := messages[len(messages)-1].ID
		page.NextCursor = &oldest
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	page.Messages = messages
	return page, nil
}

// EditMessage replaces the text of a message. Only its sender may edit.
func (s *MessageService) EditMessage(ctx context.Context, messageID, userID uuid.UUID, content string) (*models.Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return nil, ErrMessageTooLong
	}

	message, conv, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted() {
		return nil, ErrMessageDeleted
	}

	now := s.now()
	if err := s.messageRepo.Update(ctx, message.ID, map[string]interface{}{
		"content":   text,
		"edited_at": now,
	}); err != nil {
		return nil, err
	}
	message.Content = &text
	message.EditedAt = &now

	logger.Log.Info("Message edited",
		zap.String("message_id", message.ID.String()),
		zap.String("user_id", userID.String()),
	)

	s.emitBoth(ctx, conv, broker.EventMessageEdited, map[string]interface{}{
		"conversationId": conv.ID,
		"message":        message,
	})
	return message, nil
}

// DeleteMessage soft-deletes a message for both participants. Deleting an
// already deleted message is a no-op.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, userID uuid.UUID) (*models.Message, error) {
	message, conv, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted() {
		return message, nil
	}

	now := s.now()
	if err := s.messageRepo.Update(ctx, message.ID, map[string]interface{}{
		"deleted_at": now,
		"content":    nil,
		"media_url":  nil,
	}); err != nil {
		return nil, err
	}
	message.DeletedAt = &now
	message.Content = nil
	message.MediaURL = nil

	logger.Log.Info("Message deleted",
		zap.String("message_id", message.ID.String()),
		zap.String("user_id", userID.String()),
	)

	s.emitBoth(ctx, conv, broker.EventMessageDeleted, map[string]interface{}{
		"conversationId": conv.ID,
		"messageId":      message.ID,
	})
	return message, nil
}

// React sets userID's reaction on a message, replacing any previous one.
func (s *MessageService) React(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.MessageReaction, error) {
	emoji, err := ValidateEmoji(emoji)
	if err != nil {
		return nil, err
	}

	message, conv, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted() {
		return nil, ErrMessageDeleted
	}

	reaction, err := s.messageRepo.UpsertReaction(ctx, &models.MessageReaction{
		MessageID: message.ID,
		UserID:    userID,
		Emoji:     emoji,
	})
	if err != nil {
		return nil, err
	}

	s.emitBoth(ctx, conv, broker.EventReactionAdded, map[string]interface{}{
		"conversationId": conv.ID,
		"messageId":      message.ID,
		"reaction":       reaction,
	})
	return reaction, nil
}

func (s *MessageService) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID) error {
	message, conv, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}

	removed, err := s.messageRepo.DeleteReaction(ctx, message.ID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrReactionNotFound
	}

	s.emitBoth(ctx, conv, broker.EventReactionRemoved, map[string]interface{}{
		"conversationId": conv.ID,
		"messageId":      message.ID,
		"userId":         userID,
	})
	return nil
}

// MarkDelivered records that the recipient's client received a message.
func (s *MessageService) MarkDelivered(ctx context.Context, messageID, userID uuid.UUID) error {
	message, conv, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if message.SenderID == userID {
		return ErrNotRecipient
	}

	changed, err := s.messageRepo.MarkDelivered(ctx, message.ID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.emitter.Emit(ctx, message.SenderID, broker.EventMessageUpdated, map[string]interface{}{
		"conversationId": conv.ID,
		"messageId":      message.ID,
		"delivered":      true,
	})
	return nil
}

// MarkConversationRead marks the other party's unread messages as read and
// returns how many changed.
func (s *MessageService) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (int, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if conv == nil {
		return 0, ErrConversationNotFound
	}
	if !conv.HasParticipant(readerID) {
		return 0, ErrNotParticipant
	}

	ids, err := s.messageRepo.MarkConversationRead(ctx, conv.ID, readerID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	logger.Log.Debug("Conversation marked read",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", readerID.String()),
		zap.Int("count", len(ids)),
	)

	s.emitter.Emit(ctx, conv.OtherUser(readerID), broker.EventMessageRead, map[string]interface{}{
		"conversationId": conv.ID,
		"readerId":       readerID,
		"messageIds":     ids,
	})
	return len(ids), nil
}

func (s *MessageService) participantMessage(ctx context.Context, messageID, userID uuid.UUID) (*models.Message, *models.Conversation, error) {
	message, err := s.messageRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	if message == nil {
		return nil, nil, ErrMessageNotFound
	}

	conv, err := s.convRepo.FindByID(ctx, message.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, nil, ErrNotParticipant
	}
	return message, conv, nil
}

func (s *MessageService) ownMessage(ctx context.Context, messageID, userID uuid.UUID) (*models.Message, *models.Conversation, error) {
	message, conv, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, nil, err
	}
	if message.SenderID != userID {
		return nil, nil, ErrNotSender
	}
	return message, conv, nil
}

func (s *MessageService) emitBoth(ctx context.Context, conv *models.Conversation, eventType string, payload interface{}) {
	s.emitter.Emit(ctx, conv.UserAID, eventType, payload)
	s.emitter.Emit(ctx, conv.UserBID, eventType, payload)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// messagePreview is the conversation list snippet: the first runes of the
// text, or a marker naming the media type.
func messagePreview(content *string, t models.MessageType) string {
	if content == nil {
		return "[" + string(t) + "]"
	}
	runes := []rune(*content)
	if len(runes) > PreviewLength {
		return string(runes[:PreviewLength])
	}
	return *content
}

// ValidateEmoji trims emoji and checks it looks like a single emoji
// sequence rather than free text.
func ValidateEmoji(emoji string) (string, error) {
	e := strings.TrimSpace(emoji)
	if e == "" || len(e) > maxEmojiByteWidth || utf8.RuneCountInString(e) > maxEmojiRunes {
		return "", ErrInvalidEmoji
	}
	runes := []rune(e)
	for i, r := range runes {
		if unicode.IsSpace(r) {
			return "", ErrInvalidEmoji
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		// Letters and digits only count as emoji in keycap or
		// presentation sequences such as 1️⃣ or ℹ️
		if i+1 >= len(runes) || (runes[i+1] != variationSelector16 && runes[i+1] != combiningKeycap) {
			return "", ErrInvalidEmoji
		}
	}
	return e, nil
}
