package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/middleware"
	"github.com/lify-app/lify-backend/pkg/apperr"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

// StatusFor maps an application error code to its HTTP status
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument, apperr.CodeFailedPrecondition:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Unexpected failures are
// logged and carry the cause under "details".
func respondError(c *gin.Context, op string, err error) {
	status := StatusFor(apperr.CodeOf(err))

	if status == http.StatusInternalServerError {
		logger.Log.Error(op+" failed",
			zap.String("ip", c.ClientIP()),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{
			"error":   "internal server error",
			"details": err.Error(),
		})
		return
	}

	var appErr *apperr.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	logger.Log.Debug(op+" refused",
		zap.String("ip", c.ClientIP()),
		zap.Int("status", status),
		zap.String("error", message),
	)
	c.JSON(status, gin.H{"error": message})
}

func respondBadRequest(c *gin.Context, op string, err error) {
	logger.Log.Warn(op+" request parsing failed",
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a path parameter or writes a 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
