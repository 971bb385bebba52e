// Package actorctx carries the authenticated caller on a request's
// context.Context, so code below the HTTP layer can see who is acting
// without depending on gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/bookstore/internal/auth"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return c, ok && c != nil
}

// UserIDFrom returns the caller's account id, or false for anonymous requests.
func UserIDFrom(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return 0, false
	}
	return c.ID, true
}
