package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/geocoder89/bookstore/internal/security"
)

// AccountStore is the subset of the account repository the bootstrap needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, a account.NewAccount) (account.Account, error)
}

// EnsureAdminUser creates the bootstrap administrator from config when it
// does not exist yet. An existing account with that email is left untouched.
func EnsureAdminUser(ctx context.Context, accounts AccountStore, cfg config.Config) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err = accounts.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, account.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	_, err = accounts.Create(ctx, account.NewAccount{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         role.Admin,
	})

	if errors.Is(err, account.ErrEmailTaken) {
		return false, nil
	}

	return err == nil, err
}
