package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopauth/internal/ratelimit"
)

// RateLimit caps requests per client IP. A nil limiter lets everything through.
func RateLimit(limiter *ratelimit.Keyed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests from this IP, please try again later"})
			return
		}
		c.Next()
	}
}
