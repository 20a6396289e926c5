package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payflow/server/internal/shared/logger"
)

// Logging returns a middleware that logs each request.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.String("duration", time.Since(start).String()),
			logger.String("request_id", c.GetString("request_id")),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}
