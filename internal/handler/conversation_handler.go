package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/service"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
}

func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
	}
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.conversationService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "List conversations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": items})
}

// GET /api/conversations/requests/inbox?includeRejected=true
func (h *ConversationHandler) Inbox(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	includeRejected := c.Query("includeRejected") == "true"
	items, err := h.conversationService.Inbox(c.Request.Context(), userID, includeRejected)
	if err != nil {
		respondError(c, "List request inbox", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": items})
}

// GET /api/conversations/requests/sent
func (h *ConversationHandler) Sent(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.conversationService.Sent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "List sent requests", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": items})
}

// GET /api/conversations/requests/count
func (h *ConversationHandler) Count(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.conversationService.CountRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Count requests", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// POST /api/conversations/:id/accept
func (h *ConversationHandler) Accept(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversationService.Accept(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, "Accept request", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// DELETE /api/conversations/:id/request
func (h *ConversationHandler) Reject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversationService.Reject(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, "Reject request", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) Hide(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.conversationService.Hide(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, "Hide conversation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hidden": true})
}
