package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/broker"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/repository"
	"github.com/lify-app/lify-backend/pkg/apperr"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestInfo describes where a conversation stands from one viewer's side
type RequestInfo struct {
	Status            models.ConversationStatus `json:"status"`
	IsInitiator       bool                      `json:"isInitiator"`
	IsPending         bool                      `json:"isPending"`
	IsRejected        bool                      `json:"isRejected"`
	RequestCreatedAt  *time.Time                `json:"requestCreatedAt"`
	RequestAcceptedAt *time.Time                `json:"requestAcceptedAt"`
	RequestRejectedAt *time.Time                `json:"requestRejectedAt"`
}

// ConversationSummary is one row of a conversation list
type ConversationSummary struct {
	Conversation *models.Conversation `json:"conversation"`
	OtherUser    *models.User         `json:"otherUser"`
	UnreadCount  int64                `json:"unreadCount"`
	RequestInfo  RequestInfo          `json:"requestInfo"`
}

type ConversationService struct {
	tx       *repository.TxManager
	convRepo *repository.ConversationRepository
	userRepo *repository.UserRepository
	emitter  broker.Emitter
	now      Clock
}

func NewConversationService(
	tx *repository.TxManager,
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
	emitter broker.Emitter,
) *ConversationService {
	return &ConversationService{
		tx:       tx,
		convRepo: convRepo,
		userRepo: userRepo,
		emitter:  emitter,
		now:      systemClock,
	}
}

func (s *ConversationService) SetClock(c Clock) {
	s.now = c
}

// Resolve returns the conversation between sender and recipient, creating
// it when the pair has never talked. A new conversation with a private
// recipient the sender does not follow starts as a REQUEST.
func (s *ConversationService) Resolve(ctx context.Context, senderID, recipientID uuid.UUID) (*models.Conversation, error) {
	if senderID == recipientID {
		return nil, ErrSelfMessage
	}

	var resolved *models.Conversation
	err := s.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		convRepo := s.convRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		recipient, err := userRepo.GetUserByID(ctx, recipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrUserNotFound
		}

		existing, err := convRepo.FindByPair(ctx, senderID, recipientID)
		if err != nil {
			return err
		}

		resolved, err = s.resolveWith(ctx, convRepo, userRepo, senderID, recipient, existing)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveWith runs inside the caller's transaction. existing is the result
// of a prior FindByPair, nil when the pair has no conversation yet.
func (s *ConversationService) resolveWith(
	ctx context.Context,
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
	senderID uuid.UUID,
	recipient *models.User,
	existing *models.Conversation,
) (*models.Conversation, error) {
	if existing != nil {
		return s.reopen(ctx, convRepo, existing)
	}

	following, err := userRepo.IsFollowing(ctx, senderID, recipient.ID)
	if err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		UserAID: senderID,
		UserBID: recipient.ID,
		Status:  models.StatusNormal,
	}
	if recipient.IsPrivate && !following {
		now := s.now()
		receiverID := recipient.ID
		conv.Status = models.StatusRequest
		conv.InitiatedByUserID = &senderID
		conv.RequestSenderID = &senderID
		conv.RequestReceiverID = &receiverID
		conv.RequestCreatedAt = &now
	}

	created, err := convRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race against a concurrent first message
		winner, err := convRepo.FindByPair(ctx, senderID, recipient.ID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, apperr.Internal("conversation missing after conflicting insert", nil)
		}
		return s.reopen(ctx, convRepo, winner)
	}

	if _, err := convRepo.EnsureParticipants(ctx, conv.ID, conv.UserAID, conv.UserBID); err != nil {
		return nil, err
	}

	logger.Log.Info("Conversation created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("status", string(conv.Status)),
		zap.String("sender_id", senderID.String()),
		zap.String("recipient_id", recipient.ID.String()),
	)

	return convRepo.FindByID(ctx, conv.ID)
}

// reopen repairs missing participant rows and clears every soft-delete
// watermark so a new message surfaces the thread for both users.
func (s *ConversationService) reopen(ctx context.Context, convRepo *repository.ConversationRepository, conv *models.Conversation) (*models.Conversation, error) {
	repaired, err := convRepo.EnsureParticipants(ctx, conv.ID, conv.UserAID, conv.UserBID)
	if err != nil {
		return nil, err
	}
	if repaired > 0 {
		logger.Log.Warn("Repaired missing conversation participants",
			zap.String("conversation_id", conv.ID.String()),
			zap.Int64("repaired", repaired),
		)
	}

	if err := convRepo.ClearDeletedAt(ctx, conv.ID); err != nil {
		return nil, err
	}

	if repaired > 0 {
		return convRepo.FindByID(ctx, conv.ID)
	}
	for i := range conv.Participants {
		conv.Participants[i].LastDeletedAt = nil
	}
	return conv, nil
}

// requestForReceiver loads a conversation and checks that userID is the
// receiving side of a request.
func (s *ConversationService) requestForReceiver(ctx context.Context, conversationID, userID uuid.UUID, allowed ...models.ConversationStatus) (*models.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	ok := false
	for _, status := range allowed {
		if conv.Status == status {
			ok = true
			break
		}
	}
	if !ok {
		return nil, ErrNotRequest
	}
	if conv.IsInitiator(userID) {
		return nil, ErrOwnRequest
	}
	return conv, nil
}

// Accept turns a pending or rejected request into a normal conversation.
func (s *ConversationService) Accept(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.requestForReceiver(ctx, conversationID, userID, models.StatusRequest, models.StatusRejected)
	if err != nil {
		logger.Log.Warn("Accept request refused",
			zap.String("conversation_id", conversationID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	err = s.convRepo.Update(ctx, conv.ID, map[string]interface{}{
		"status":              models.StatusNormal,
		"request_accepted_at": now,
		"request_rejected_at": nil,
	})
	if err != nil {
		return nil, err
	}

	conv.Status = models.StatusNormal
	conv.RequestAcceptedAt = &now
	conv.RequestRejectedAt = nil

	logger.Log.Info("Message request accepted",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", userID.String()),
	)

	if conv.InitiatedByUserID != nil {
		s.emitter.Emit(ctx, *conv.InitiatedByUserID, broker.EventRequestAccepted, map[string]interface{}{
			"conversationId": conv.ID,
			"acceptedBy":     userID,
			"conversation":   conv,
		})
	}
	return conv, nil
}

// Reject marks a pending request as rejected. The initiator keeps seeing
// it in their sent list and can no longer send into it.
func (s *ConversationService) Reject(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.requestForReceiver(ctx, conversationID, userID, models.StatusRequest)
	if err != nil {
		logger.Log.Warn("Reject request refused",
			zap.String("conversation_id", conversationID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	err = s.convRepo.Update(ctx, conv.ID, map[string]interface{}{
		"status":              models.StatusRejected,
		"request_rejected_at": now,
	})
	if err != nil {
		return nil, err
	}

	conv.Status = models.StatusRejected
	conv.RequestRejectedAt = &now

	logger.Log.Info("Message request rejected",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", userID.String()),
	)

	if conv.InitiatedByUserID != nil {
		s.emitter.Emit(ctx, *conv.InitiatedByUserID, broker.EventRequestRejected, map[string]interface{}{
			"conversationId": conv.ID,
			"rejectedBy":     userID,
		})
	}
	return conv, nil
}

// Hide soft-deletes the conversation for userID only. It comes back as
// soon as a newer message arrives.
func (s *ConversationService) Hide(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if err := s.convRepo.SetDeletedAt(ctx, conv.ID, userID, s.now()); err != nil {
		return err
	}

	logger.Log.Info("Conversation hidden",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// List returns the main conversation list: normal conversations plus the
// requests userID initiated.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	return s.summaries(ctx, userID, func(c *models.Conversation) bool {
		return c.Status == models.StatusNormal || c.IsInitiator(userID)
	})
}

// Inbox returns requests addressed to userID. Rejected ones are included
// only on demand.
func (s *ConversationService) Inbox(ctx context.Context, userID uuid.UUID, includeRejected bool) ([]ConversationSummary, error) {
	return s.summaries(ctx, userID, func(c *models.Conversation) bool {
		return isIncomingRequest(c, userID, includeRejected)
	})
}

// Sent returns the requests userID initiated that are not accepted yet
func (s *ConversationService) Sent(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	return s.summaries(ctx, userID, func(c *models.Conversation) bool {
		return (c.Status == models.StatusRequest || c.Status == models.StatusRejected) && c.IsInitiator(userID)
	})
}

// CountRequests counts pending requests addressed to userID
func (s *ConversationService) CountRequests(ctx context.Context, userID uuid.UUID) (int, error) {
	convs, err := s.visible(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range convs {
		if isIncomingRequest(&convs[i], userID, false) {
			count++
		}
	}
	return count, nil
}

func isIncomingRequest(c *models.Conversation, userID uuid.UUID, includeRejected bool) bool {
	if c.InitiatedByUserID == nil || c.IsInitiator(userID) {
		return false
	}
	if c.Status == models.StatusRequest {
		return true
	}
	return includeRejected && c.Status == models.StatusRejected
}

// visible lists userID's conversations minus the ones their soft-delete
// watermark hides.
func (s *ConversationService) visible(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	convs, err := s.convRepo.ListForUser(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to list conversations",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	out := convs[:0]
	for i := range convs {
		if convs[i].Participant(userID).Hides(&convs[i]) {
			continue
		}
		out = append(out, convs[i])
	}
	return out, nil
}

func (s *ConversationService) summaries(ctx context.Context, userID uuid.UUID, keep func(*models.Conversation) bool) ([]ConversationSummary, error) {
	convs, err := s.visible(ctx, userID)
	if err != nil {
		return nil, err
	}

	selected := make([]*models.Conversation, 0, len(convs))
	otherIDs := make([]uuid.UUID, 0, len(convs))
	convIDs := make([]uuid.UUID, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		if !keep(c) {
			continue
		}
		selected = append(selected, c)
		otherIDs = append(otherIDs, c.OtherUser(userID))
		convIDs = append(convIDs, c.ID)
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.convRepo.CountUnread(ctx, convIDs, userID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i].LastMessageAt, selected[j].LastMessageAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	out := make([]ConversationSummary, 0, len(selected))
	for _, c := range selected {
		out = append(out, ConversationSummary{
			Conversation: c,
			OtherUser:    users[c.OtherUser(userID)],
			UnreadCount:  unread[c.ID],
			RequestInfo:  requestInfo(c, userID),
		})
	}
	return out, nil
}

func requestInfo(c *models.Conversation, userID uuid.UUID) RequestInfo {
	return RequestInfo{
		Status:            c.Status,
		IsInitiator:       c.IsInitiator(userID),
		IsPending:         c.Status == models.StatusRequest,
		IsRejected:        c.Status == models.StatusRejected,
		RequestCreatedAt:  c.RequestCreatedAt,
		RequestAcceptedAt: c.RequestAcceptedAt,
		RequestRejectedAt: c.RequestRejectedAt,
	}
}
