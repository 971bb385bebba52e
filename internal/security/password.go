package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for every stored credential.
const PasswordCost = 10

var ErrInvalidPassword = errors.New("invalid password input")

// HashPassword hashes a plain text password with bcrypt. Every call uses a
// fresh salt, so two hashes of the same input never compare equal.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: empty password", ErrInvalidPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)

	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}
		return "", err
	}

	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
// A malformed hash is treated as a mismatch.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
