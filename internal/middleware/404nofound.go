package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// NoFound 404 handler
// NoFound 404 处理
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)
		response.ToResponse(code.ErrorNotFoundAPI)
		c.Abort()
	}
}
