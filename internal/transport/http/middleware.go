package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"kheelo-quiz-service/internal/auth"
)

const adminIDKey = "admin_id"

// AdminAuth requires a bearer JWT carrying the admin role.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "Authorization header is required"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "Invalid authorization header format"})
			return
		}

		claims, err := auth.ParseAdminToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "Invalid admin token"})
			return
		}
		c.Set(adminIDKey, claims.UserID)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if admin := c.GetString(adminIDKey); admin != "" {
			attrs = append(attrs, slog.String("admin_id", admin))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", attrs...)
			return
		}
		log.Debug("request", attrs...)
	}
}
