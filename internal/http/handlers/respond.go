package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the body of every handler failure. Message is the field the
// browser client reads; the rest is for operators.
type APIError struct {
	Message   string      `json:"message"`
	Code      string      `json:"code,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, APIError{
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondLegacyError writes {"error": message}. Review ownership failures and
// self-deletion keep this shape because existing clients branch on it.
func RespondLegacyError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}
