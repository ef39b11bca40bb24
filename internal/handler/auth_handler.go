package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/middleware"
	"github.com/lify-app/lify-backend/internal/models"
	"github.com/lify-app/lify-backend/internal/service"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  *service.AuthService
	isProduction bool
}

func NewAuthHandler(authService *service.AuthService, isProduction bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		isProduction: isProduction,
	}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
	IsPrivate   bool   `json:"isPrivate"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login. The token is also set as
// an HttpOnly cookie for browser clients.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Registration", err)
		return
	}

	logger.Log.Info("User registration attempt",
		zap.String("username", req.Username),
		zap.String("ip", c.ClientIP()),
	)

	user, token, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		respondError(c, "Registration", err)
		return
	}

	h.setTokenCookie(c, token)
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Login", err)
		return
	}

	logger.Log.Info("User login attempt",
		zap.String("ip", c.ClientIP()),
	)

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "Login", err)
		return
	}

	h.setTokenCookie(c, token)
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode) // CSRF protection
	c.SetCookie(
		middleware.AuthCookieName,
		token,
		int(h.authService.TokenTTL().Seconds()),
		"/",
		"",
		h.isProduction, // secure (HTTPS-only in production)
		true,           // httpOnly (JavaScript cannot access)
	)
}
