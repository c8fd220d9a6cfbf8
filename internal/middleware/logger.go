package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/constants"
)

// RequestLogger logs one structured line per request.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if userID := c.GetString(constants.ContextKeyUserID); userID != "" {
			entry = entry.WithField("user_id", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request completed")
		case status >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
