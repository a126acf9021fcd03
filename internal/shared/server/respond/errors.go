package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/telemetry"
)

// Context keys shared with the middleware package.
const (
	RequestIDKey = "requestId"
	UserEmailKey = "userEmail"
)

// ErrorBody is the error object every failing endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts with the error envelope.
// 5xx responses log at error level, everything else at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString(RequestIDKey),
	}
	if email := c.GetString(UserEmailKey); email != "" {
		fields["user_email"] = email
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// Internal sends a 500 whose details carry the request ID so clients can
// quote it; the underlying cause stays in the logs.
func Internal(c *gin.Context, message string, cause error) {
	if cause != nil {
		telemetry.Error("http.internal_cause", map[string]any{
			"request_id": c.GetString(RequestIDKey),
			"error":      cause,
		})
	}
	Error(c, http.StatusInternalServerError, "internal_error", message, gin.H{
		"request_id": c.GetString(RequestIDKey),
	})
}
