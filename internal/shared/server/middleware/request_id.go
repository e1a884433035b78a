package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-Id"

const (
	requestIDKey    = "requestId"
	maxRequestIDLen = 128
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// RequestID tags each request with a correlation id. A well-formed inbound id is kept;
// anything else is replaced with a fresh UUID so log fields stay printable.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := acceptRequestID(c.GetHeader(RequestIDHeader))
		if !ok {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the id set by RequestID, or "" outside that middleware.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

func acceptRequestID(raw string) (string, bool) {
	if raw == "" || len(raw) > maxRequestIDLen || !requestIDPattern.MatchString(raw) {
		return "", false
	}
	return raw, true
}
