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

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) WithTx(tx *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

// FindByPair looks a conversation up by its canonical pair, in either order.
// Returns nil, nil when the pair has never talked.
func (r *ConversationRepository) FindByPair(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	userA, userB := models.CanonicalPair(a, b)

	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("user_a_id = ? AND user_b_id = ?", userA, userB).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "conversationRepo.FindByPair")
	}
	return &conv, nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "conversationRepo.FindByID")
	}
	return &conv, nil
}

// CreateIfAbsent inserts conv unless its pair already exists. created is
// false when another writer got there first; the caller must reselect.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, conv *models.Conversation) (bool, error) {
	conv.UserAID, conv.UserBID = models.CanonicalPair(conv.UserAID, conv.UserBID)

	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(conv)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "conversationRepo.CreateIfAbsent")
	}
	return result.RowsAffected > 0, nil
}

// EnsureParticipants inserts the missing participant rows of a conversation
// and reports how many were created.
func (r *ConversationRepository) EnsureParticipants(ctx context.Context, conversationID uuid.UUID, userIDs ...uuid.UUID) (int64, error) {
	rows := make([]models.ConversationParticipant, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.ConversationParticipant{ConversationID: conversationID, UserID: id})
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "conversationRepo.EnsureParticipants")
	}
	return result.RowsAffected, nil
}

// ClearDeletedAt un-hides the conversation for every participant
func (r *ConversationRepository) ClearDeletedAt(ctx context.Context, conversationID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND last_deleted_at IS NOT NULL", conversationID).
		Update("last_deleted_at", nil).Error
	if err != nil {
		return errors.Wrap(err, "conversationRepo.ClearDeletedAt")
	}
	return nil
}

// SetDeletedAt moves one participant's soft-delete watermark, creating the
// participant row if it is missing.
func (r *ConversationRepository) SetDeletedAt(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	row := models.ConversationParticipant{ConversationID: conversationID, UserID: userID, LastDeletedAt: &at}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_deleted_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "conversationRepo.SetDeletedAt")
	}
	return nil
}

// Update applies column updates to a single conversation row
func (r *ConversationRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return errors.Wrap(err, "conversationRepo.Update")
	}
	return nil
}

// ListForUser returns every conversation userID takes part in, most recent first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversationRepo.ListForUser")
	}
	return convs, nil
}

type unreadRow struct {
	ConversationID uuid.UUID
	Count          int64
}

// CountUnread counts, per conversation, the messages sent to userID that
// are still unread.
func (r *ConversationRepository) CountUnread(ctx context.Context, conversationIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("conversation_id IN ? AND sender_id <> ? AND read = ? AND deleted_at IS NULL", conversationIDs, userID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversationRepo.CountUnread")
	}
	for _, row := range rows {
		out[row.ConversationID] = row.Count
	}
	return out, nil
}
