package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	RespondRawJSONWithETag(ctx, status, body)
}

// RespondRawJSONWithETag serves an already encoded body, such as a cached
// catalog listing.
func RespondRawJSONWithETag(ctx *gin.Context, status int, body []byte) {
	etag := buildETag(body)
	ctx.Header("ETag", etag)
	// clients revalidate with If-None-Match before reusing a copy
	ctx.Header("Cache-Control", "no-cache")

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

func buildETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	if strings.TrimSpace(headerValue) == "" || strings.TrimSpace(currentETag) == "" {
		return false
	}

	if strings.TrimSpace(headerValue) == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

// weak validators (W/"abc") compare equal to their strong form
func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}
	return v
}
