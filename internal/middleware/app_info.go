package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/anchored-notes/anchored-sync-service/pkg/app"
)

// AppInfoWithConfig injects app identity into the request context.
func AppInfoWithConfig(name, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("app_name", name)
		c.Set("app_version", version)
		c.Set("access_host", app.GetAccessHost(c))

		c.Next()
	}
}
