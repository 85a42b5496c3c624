package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// RecoveryWithLogger turns handler panics into a unified 500 response.
func RecoveryWithLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		defer func() {
			if err := recover(); err != nil {
				var errorMsg string
				switch e := err.(type) {
				case error:
					logger.Error("recovered from panic",
						zap.Int("status", c.Writer.Status()),
						zap.String("router", path),
						zap.String("method", c.Request.Method),
						zap.String("query", query),
						zap.String("ip", c.ClientIP()),
						zap.String("user-agent", c.Request.UserAgent()),
						zap.Error(e),
						zap.String("stack", string(debug.Stack())),
					)
					errorMsg = e.Error()
				default:
					logger.Error("recovered from unknown panic",
						zap.Int("status", c.Writer.Status()),
						zap.String("router", path),
						zap.String("method", c.Request.Method),
						zap.String("query", query),
						zap.String("ip", c.ClientIP()),
						zap.String("user-agent", c.Request.UserAgent()),
						zap.String("panic_value", fmt.Sprintf("%v", err)),
						zap.String("stack", string(debug.Stack())),
					)
					errorMsg = fmt.Sprintf("%v", err)
				}

				app.NewResponse(c).ToResponse(code.ErrorServerInternal.WithDetails(errorMsg))
				c.Abort()
			}
		}()

		c.Next()
	}
}
