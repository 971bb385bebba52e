package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/geocoder89/bookstore/internal/actorctx"
	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	shortTimeout = 2 * time.Second
	writeTimeout = 3 * time.Second
	// uploads may hit object storage
	uploadTimeout = 10 * time.Second
)

// withTimeout bounds store calls while keeping the request's values (trace
// span, authenticated claims) on the derived context.
func withTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

// pathID parses a positive integer path parameter, answering 400 otherwise.
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid id", nil)
		return 0, false
	}
	return id, true
}

// callerClaims returns the verified claims or answers 401. Routes using it sit
// behind the token verifier, so a miss means the router is misconfigured.
func callerClaims(ctx *gin.Context) (*auth.Claims, bool) {
	claims, ok := actorctx.ClaimsFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "No token provided")
		return nil, false
	}
	return claims, true
}
