package account

import (
	"errors"

	"github.com/geocoder89/bookstore/internal/domain/role"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already in use")
)

type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         role.Role `json:"roleId"`
}

// Profile is the self-service view of an account.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a Account) Profile() Profile {
	return Profile{ID: a.ID, Name: a.Name, Email: a.Email}
}

type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Role         role.Role
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateRequest is used by administrators to create accounts with any role.
type CreateRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	RoleID   int    `json:"roleId" binding:"required,oneof=1 2"`
}

// UpdateProfileRequest carries optional fields; empty strings mean "keep".
type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"omitempty,max=100"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=8,max=72"`
}
