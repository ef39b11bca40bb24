package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

type SendMessageRequest struct {
	Content   *string            `json:"content"`
	MediaURL  *string            `json:"mediaUrl"`
	Type      models.MessageType `json:"type"`
	Duration  *int               `json:"duration"`
	ReplyToID *uuid.UUID         `json:"replyToId"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// POST /api/messages/to/:otherUserId
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	recipientID, ok := uuidParam(c, "otherUserId")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Send message", err)
		return
	}

	result, err := h.messageService.Send(c.Request.Context(), service.SendInput{
		SenderID:    userID,
		RecipientID: recipientID,
		Content:     req.Content,
		MediaURL:    req.MediaURL,
		Type:        req.Type,
		Duration:    req.Duration,
		ReplyToID:   req.ReplyToID,
	})
	if err != nil {
		respondError(c, "Send message", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GET /api/messages/with/:otherUserId?limit&cursor&since
func (h *MessageHandler) ListWith(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	otherID, ok := uuidParam(c, "otherUserId")
	if !ok {
		return
	}

	var q service.ListQuery
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}
	if raw := c.Query("cursor"); raw != "" {
		cursor, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		q.Cursor = &cursor
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since, expected RFC3339"})
			return
		}
		since = since.UTC()
		q.Since = &since
	}

	page, err := h.messageService.ListWith(c.Request.Context(), userID, otherID, q)
	if err != nil {
		respondError(c, "List messages", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// PATCH /api/messages/:id
func (h *MessageHandler) Edit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Edit message", err)
		return
	}

	message, err := h.messageService.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		respondError(c, "Edit message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// DELETE /api/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	message, err := h.messageService.DeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, "Delete message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// POST /api/messages/:id/reactions
func (h *MessageHandler) React(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "React", err)
		return
	}

	reaction, err := h.messageService.React(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		respondError(c, "React", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reaction": reaction})
}

// DELETE /api/messages/:id/reactions
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.RemoveReaction(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, "Remove reaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// POST /api/messages/read/:conversationId
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "conversationId")
	if !ok {
		return
	}

	count, err := h.messageService.MarkConversationRead(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, "Mark read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
