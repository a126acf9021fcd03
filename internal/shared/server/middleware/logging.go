package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		metrics.ObserveHTTPResponse(c.Writer.Status())

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_email":  UserEmailFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if docID := c.GetString(DocumentIDKey); docID != "" {
			fields["document_id"] = docID
		}
		telemetry.Info("request.complete", fields)
	}
}

// DocumentIDKey is set by handlers that act on a single document.
const DocumentIDKey = "documentId"
