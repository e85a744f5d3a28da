package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalconnect.io/portal/pkg/response"
	"legalconnect.io/portal/pkg/token"
)

type SessionMiddleware struct {
	tokens *token.Issuer
}

func NewSessionMiddleware(tokens *token.Issuer) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens}
}

// RequireFormSession accepts a registration session token from the
// Authorization header or, for websockets, the token query parameter.
func (m *SessionMiddleware) RequireFormSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "registration session required"})
			c.Abort()
			return
		}

		sessionID, err := m.tokens.Parse(tokenString, token.AudienceRegistration)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(response.SessionIDKey, sessionID)
		c.Next()
	}
}
