package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", RequestIDHeader, IdempotencyHeader}, ", ")
	corsExposeHeaders = strings.Join([]string{RequestIDHeader, IdempotencyReplayHeader, "Retry-After"}, ", ")
)

// CORS answers for the origins in CORS_ALLOWED_ORIGINS; "*" allows any.
// Requests from other origins get no CORS headers and the browser blocks them.
func CORS(origins []string) gin.HandlerFunc {
	cualquiera := slices.Contains(origins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case cualquiera:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
