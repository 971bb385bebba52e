package middlewares

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies. Multipart uploads get their own, larger limit.
func BodyLimit(jsonMax, multipartMax int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		limit := jsonMax
		if strings.HasPrefix(strings.ToLower(ctx.GetHeader("Content-Type")), "multipart/") {
			limit = multipartMax
		}

		if limit > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}

		ctx.Next()
	}
}

// RequireContentType rejects write requests whose media type is not listed.
// Parameters such as charset or multipart boundary are ignored.
func RequireContentType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err == nil {
			for _, a := range allowed {
				if strings.EqualFold(mediaType, a) {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"message": "Content-Type must be one of: " + strings.Join(allowed, ", "),
		})
	}
}
