package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("token signing secret is empty")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims is the decoded session carried by a bearer token. It is built once
// by Verify and never modified afterwards.
type Claims struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Role  role.Role `json:"roleId"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the account with HS256.
func (m *Manager) Issue(accountID int64, email string, r role.Role) (string, error) {
	if accountID <= 0 || email == "" || !r.Valid() {
		return "", fmt.Errorf("issue token: incomplete identity (id=%d role=%d)", accountID, r)
	}

	now := m.now().UTC()

	claims := Claims{
		ID:    accountID,
		Email: email,
		Role:  r,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature, then expiry, then that every identity claim
// is present. Any failure is reported as ErrInvalidToken.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ID <= 0 || claims.Email == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}

	return claims, nil
}
