package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopauth/internal/services"
)

const badHeader = "Missing or invalid Authorization header"

// Ключи gin-контекста, которые выставляет AuthMiddleware.
const (
	CtxUserID = "user_id"
	CtxToken  = "token"
)

// bearerToken достаёт токен из "Authorization: Bearer <token>".
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// AuthMiddleware verifies the bearer token and puts the user id and the raw
// token into the gin context.
func AuthMiddleware(tokens services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": badHeader})
			return
		}

		userID, err := tokens.Verify(c.Request.Context(), tok)
		switch {
		case errors.Is(err, services.ErrExpiredToken), errors.Is(err, services.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxToken, tok)
		c.Next()
	}
}
