package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/pkg/app"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// AuthTokenWithConfig checks the static API token. An empty configured
// token disables the check.
func AuthTokenWithConfig(authToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken == "" {
			c.Next()
			return
		}

		response := app.NewResponse(c)

		var token string

		if s, exist := c.GetQuery("authorization"); exist {
			token = s
		} else if s = c.GetHeader("Authorization"); len(s) != 0 {
			token = s
		} else if s = c.GetHeader("authorization"); len(s) != 0 {
			token = s
		}

		if token != authToken {
			response.ToResponse(code.ErrorNotAuthToken)
			c.Abort()
			return
		}
		c.Next()
	}
}
