package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/bookstore/internal/actorctx"
	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// DecisionRecorder receives every gate outcome; observability.Prom implements it.
type DecisionRecorder interface {
	RecordAuthDecision(gate, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthDecision(string, string) {}

type AuthMiddleware struct {
	tokens  TokenVerifier
	metrics DecisionRecorder
}

func NewAuthMiddleware(tokens TokenVerifier, metrics DecisionRecorder) *AuthMiddleware {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &AuthMiddleware{tokens: tokens, metrics: metrics}
}

const bearerPrefix = "Bearer "

// RequireAuth rejects the request unless it carries a valid bearer token:
// 401 when the header is absent or not a Bearer credential, 403 when the token
// fails signature or expiry checks.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
			m.metrics.RecordAuthDecision("token", "missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}

		raw := strings.TrimSpace(header[len(bearerPrefix):])

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			m.metrics.RecordAuthDecision("token", "invalid")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
			return
		}

		m.metrics.RecordAuthDecision("token", "allow")

		c.Set(CtxClaims, claims)
		c.Request = c.Request.WithContext(actorctx.WithClaims(c.Request.Context(), claims))

		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}
