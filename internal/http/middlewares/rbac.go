package middlewares

import (
	"net/http"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/gin-gonic/gin"
)

// RequireRole must be mounted after RequireAuth. Requests without claims are
// denied like any other role mismatch.
func (m *AuthMiddleware) RequireRole(required role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFromContext(c)

		if err := auth.RequireRole(claims, required); err != nil {
			m.metrics.RecordAuthDecision("role", "deny")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Admins only."})
			return
		}

		m.metrics.RecordAuthDecision("role", "allow")
		c.Next()
	}
}
