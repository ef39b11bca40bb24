package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type PrivacyRequest struct {
	IsPrivate *bool `json:"isPrivate" binding:"required"`
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Get profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// PATCH /api/users/me/privacy
func (h *UserHandler) SetPrivacy(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req PrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Update privacy", err)
		return
	}

	user, err := h.userService.SetPrivacy(c.Request.Context(), userID, *req.IsPrivate)
	if err != nil {
		respondError(c, "Update privacy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// POST /api/users/:id/follow
func (h *UserHandler) Follow(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Follow(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, "Follow", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": true})
}

// DELETE /api/users/:id/follow
func (h *UserHandler) Unfollow(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Unfollow(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, "Unfollow", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": false})
}
