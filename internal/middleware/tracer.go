package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultTraceIDHeader default Trace ID header name
	DefaultTraceIDHeader = "X-Trace-ID"
	// TraceIDKey context key holding the Trace ID
	TraceIDKey = "trace_id"
)

// TraceMiddlewareWithConfig reads or generates a trace id, injects it
// into both contexts and echoes it in the response header.
func TraceMiddlewareWithConfig(enabled bool, header string) gin.HandlerFunc {
	if header == "" {
		header = DefaultTraceIDHeader
	}

	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		traceID := c.GetHeader(header)
		if traceID == "" {
			traceID = generateTraceID()
		}

		c.Set(TraceIDKey, traceID)

		ctx := context.WithValue(c.Request.Context(), TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(header, traceID)

		c.Next()
	}
}

// generateTraceID builds {timestamp_nano}-{random_hex}.
func generateTraceID() string {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}

	return fmt.Sprintf("%d-%s",
		time.Now().UnixNano(),
		hex.EncodeToString(randomBytes)[:8])
}

// GetTraceID reads the Trace ID back out of a context.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}
