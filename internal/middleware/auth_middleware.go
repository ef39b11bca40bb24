package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/utils"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	ContextUserID = "user_id"
	ContextClaims = "claims"

	// AuthCookieName carries the token for browser clients
	AuthCookieName = "auth_token"
)

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Find the token: header, then cookie, then ?token= for WebSocket upgrades
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		// 2. Validate token
		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			logger.Log.Debug("Rejected token",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		// 3. Add claims to context (handlers can access)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return "", false
		}
		return tokenString, true
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	if q := c.Query("token"); q != "" {
		return q, true
	}
	return "", false
}

// CurrentUserID returns the authenticated user's id set by AuthMiddleware
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
