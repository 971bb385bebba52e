package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsHeaders = "Authorization,Content-Type,X-Request-Id"
)

// CORSMiddleware echoes back allowed origins with credentials enabled.
// Preflight requests are answered here and never reach a handler.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		ctx.Writer.Header().Add("Vary", "Origin")

		_, ok := allowed[origin]
		if origin != "" && ok {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", corsMethods)
			ctx.Header("Access-Control-Allow-Headers", corsHeaders)
			ctx.Header("Access-Control-Expose-Headers", "ETag,X-Request-Id")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
