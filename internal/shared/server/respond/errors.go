package respond

import (
	"github.com/gin-gonic/gin"

	"prism-backend/internal/shared/telemetry"
)

// Error codes shared by handlers.
const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeGeneration  = "generation_failed"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal"
)

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
