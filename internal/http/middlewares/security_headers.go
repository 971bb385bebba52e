package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP    = "default-src 'none'; frame-ancestors 'none'"
	uploadCSP = "default-src 'none'; img-src 'self'; sandbox"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")

		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			c.Header("Content-Security-Policy", uploadCSP)
			// cover images may be embedded by the client on another origin
			c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		} else {
			c.Header("Content-Security-Policy", apiCSP)
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}
