package auth

import (
	"errors"

	"github.com/geocoder89/bookstore/internal/domain/role"
)

var ErrForbidden = errors.New("forbidden")

// RequireRole allows only when claims carry exactly the required role.
// Missing claims are denied.
func RequireRole(claims *Claims, required role.Role) error {
	if claims == nil || claims.Role != required {
		return ErrForbidden
	}
	return nil
}

// CanEditReview: only the author may change a review. Administrators get no
// override here.
func CanEditReview(ownerID int64, claims *Claims) bool {
	if claims == nil {
		return false
	}
	return ownerID == claims.ID
}

// CanDeleteReview: the author or any administrator may remove a review.
func CanDeleteReview(ownerID int64, claims *Claims) bool {
	if claims == nil {
		return false
	}
	return ownerID == claims.ID || claims.Role == role.Admin
}
