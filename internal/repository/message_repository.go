package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error; err != nil {
		return errors.Wrap(err, "messageRepo.CreateMessage")
	}
	return nil
}

// GetMessageByID retrieves a message with its reactions and reply target
func (r *MessageRepository) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("Reactions").
		Preload("ReplyTo").
		Where("id = ?", id).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "messageRepo.GetMessageByID")
	}
	return &message, nil
}

// PageQuery selects one page of a conversation, newest first
type PageQuery struct {
	ConversationID uuid.UUID
	Before         *models.Message // cursor, exclusive
	Since          *time.Time      // only messages created after this
	Limit          int
}

func (r *MessageRepository) ListPage(ctx context.Context, q PageQuery) ([]models.Message, error) {
	query := r.db.WithContext(ctx).
		Preload("Reactions").
		Preload("ReplyTo").
		Where("conversation_id = ?", q.ConversationID)

	if q.Before != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			q.Before.CreatedAt, q.Before.CreatedAt, q.Before.ID)
	}
	if q.Since != nil {
		query = query.Where("created_at > ?", *q.Since)
	}

	var messages []models.Message
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListPage")
	}
	return messages, nil
}

func (r *MessageRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return errors.Wrap(err, "messageRepo.Update")
	}
	return nil
}

// MarkDelivered flips the delivered flag; changed is false when it was
// already set.
func (r *MessageRepository) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND delivered = ?", id, false).
		Update("delivered", true)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "messageRepo.MarkDelivered")
	}
	return result.RowsAffected > 0, nil
}

// MarkConversationRead marks every unread message not sent by readerID as
// read and delivered, returning the ids that changed.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.MarkConversationRead.Select")
	}
	if len(ids) == 0 {
		return ids, nil
	}

	err = r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"read": true, "delivered": true}).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.MarkConversationRead.Update")
	}
	return ids, nil
}

// UpsertReaction replaces any previous emoji the user left on the message
func (r *MessageRepository) UpsertReaction(ctx context.Context, reaction *models.MessageReaction) (*models.MessageReaction, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"emoji", "updated_at"}),
		}).
		Create(reaction).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.UpsertReaction")
	}

	var stored models.MessageReaction
	err = r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", reaction.MessageID, reaction.UserID).
		First(&stored).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.UpsertReaction.Reload")
	}
	return &stored, nil
}

func (r *MessageRepository) DeleteReaction(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.MessageReaction{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "messageRepo.DeleteReaction")
	}
	return result.RowsAffected > 0, nil
}

func (r *MessageRepository) ListReactions(ctx context.Context, messageID uuid.UUID) ([]models.MessageReaction, error) {
	var reactions []models.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListReactions")
	}
	return reactions, nil
}
