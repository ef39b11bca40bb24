package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/internal/middleware"
)

type Handlers struct {
	Auth          *AuthHandler
	Messages      *MessageHandler
	Conversations *ConversationHandler
	Users         *UserHandler
	WebSocket     *WebSocketHandler
}

type RouterConfig struct {
	JWTSecret      string
	IsProduction   bool
	AllowedOrigins []string

	// Optional, nil disables the limit
	AuthLimiter *middleware.RateLimiter
	SendLimiter *middleware.RateLimiter

	// Health reports dependency failures for /healthz
	Health func() error
}

// NewRouter builds the gin engine with every API route
func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(cfg.IsProduction))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		auth.Use(cfg.AuthLimiter.Middleware())
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	messages := protected.Group("/messages")
	send := []gin.HandlerFunc{h.Messages.Send}
	if cfg.SendLimiter != nil {
		send = append([]gin.HandlerFunc{cfg.SendLimiter.Middleware()}, send...)
	}
	messages.POST("/to/:otherUserId", send...)
	messages.GET("/with/:otherUserId", h.Messages.ListWith)
	messages.POST("/read/:conversationId", h.Messages.MarkRead)
	messages.PATCH("/:id", h.Messages.Edit)
	messages.DELETE("/:id", h.Messages.Delete)
	messages.POST("/:id/reactions", h.Messages.React)
	messages.DELETE("/:id/reactions", h.Messages.RemoveReaction)

	conversations := protected.Group("/conversations")
	conversations.GET("", h.Conversations.List)
	conversations.GET("/requests/inbox", h.Conversations.Inbox)
	conversations.GET("/requests/sent", h.Conversations.Sent)
	conversations.GET("/requests/count", h.Conversations.Count)
	conversations.POST("/:id/accept", h.Conversations.Accept)
	conversations.DELETE("/:id/request", h.Conversations.Reject)
	conversations.DELETE("/:id", h.Conversations.Hide)

	users := protected.Group("/users")
	users.GET("/me", h.Users.Me)
	users.PATCH("/me/privacy", h.Users.SetPrivacy)
	users.POST("/:id/follow", h.Users.Follow)
	users.DELETE("/:id/follow", h.Users.Unfollow)

	if h.WebSocket != nil {
		protected.GET("/ws", h.WebSocket.HandleWebSocket)
	}

	return router
}
