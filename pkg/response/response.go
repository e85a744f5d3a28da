package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"legalconnect.io/portal/pkg/apperror"
)

// SessionIDKey is the gin context key the form-session middleware fills.
const SessionIDKey = "session_id"

// GetSessionID retrieves the registration session id from the context.
func GetSessionID(c *gin.Context) (string, error) {
	id := c.GetString(SessionIDKey)
	if id == "" {
		return "", apperror.ErrUnauthorized
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	message := err.Error()
	var appErr *apperror.AppError
	if code == http.StatusInternalServerError && !errors.As(err, &appErr) {
		message = http.StatusText(code)
	}

	c.JSON(code, gin.H{"error": message})
}

// ValidationError answers 422 with one message per failing field.
func ValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fields})
}
