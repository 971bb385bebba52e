package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/geocoder89/bookstore/internal/security"
	"github.com/gin-gonic/gin"
)

type AccountStore interface {
	Create(ctx context.Context, in account.NewAccount) (account.Account, error)
	GetByID(ctx context.Context, id int64) (account.Account, error)
	List(ctx context.Context) ([]account.Account, error)
	Update(ctx context.Context, id int64, ch account.Changes) (account.Account, error)
	Delete(ctx context.Context, id int64) error
}

// AccountsHandler serves self-service profiles and the admin user directory.
type AccountsHandler struct {
	accounts AccountStore
	cache    *CatalogCache
}

func NewAccountsHandler(accounts AccountStore, catalog *CatalogCache) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, cache: catalog}
}

// GetProfile returns the caller's profile. notFound is the message used when
// the account behind a still-valid token is gone.
func (h *AccountsHandler) GetProfile(notFound string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := callerClaims(ctx)
		if !ok {
			return
		}

		cctx, cancel := withTimeout(ctx, shortTimeout)
		defer cancel()

		a, err := h.accounts.GetByID(cctx, claims.ID)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				RespondNotFound(ctx, notFound)
				return
			}
			slog.Default().ErrorContext(cctx, "accounts.profile_failed", "err", err)
			RespondInternal(ctx, "Server error")
			return
		}

		ctx.JSON(http.StatusOK, a.Profile())
	}
}

// UpdateProfile applies a partial update to the caller's own account.
func (h *AccountsHandler) UpdateProfile(notFound string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := callerClaims(ctx)
		if !ok {
			return
		}

		var req account.UpdateProfileRequest

		if !BindJSON(ctx, &req) {
			return
		}

		var ch account.Changes
		if req.Name != "" {
			ch.Name = &req.Name
		}
		if req.Email != "" {
			ch.Email = &req.Email
		}
		if req.Password != "" {
			hash, err := security.HashPassword(req.Password)
			if err != nil {
				respondHashErr(ctx.Request.Context(), ctx, "accounts.hash_failed", err)
				return
			}
			ch.PasswordHash = &hash
		}

		cctx, cancel := withTimeout(ctx, writeTimeout)
		defer cancel()

		if _, err := h.accounts.Update(cctx, claims.ID, ch); err != nil {
			switch {
			case errors.Is(err, account.ErrNotFound):
				RespondNotFound(ctx, notFound)
			case errors.Is(err, account.ErrEmailTaken):
				RespondConflict(ctx, "email_taken", "Email already in use")
			default:
				slog.Default().ErrorContext(cctx, "accounts.update_failed", "err", err)
				RespondInternal(ctx, "Server error")
			}
			return
		}

		RespondMessage(ctx, http.StatusOK, "Profile updated successfully")
	}
}

// DeleteOwnAccount removes the caller. Their reviews go with them.
func (h *AccountsHandler) DeleteOwnAccount(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.accounts.Delete(cctx, claims.ID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondLegacyError(ctx, http.StatusNotFound, "User not found")
			return
		}
		slog.Default().ErrorContext(cctx, "accounts.delete_self_failed", "err", err)
		RespondLegacyError(ctx, http.StatusInternalServerError, "Server error")
		return
	}

	// the account's reviews are gone, so ratings on the listing changed
	h.cache.invalidateHome(cctx)

	slog.Default().InfoContext(cctx, "accounts.deleted_self")
	RespondMessage(ctx, http.StatusOK, "Account deleted successfully")
}

// DeleteAdminAccount is the admin dashboard's self-delete. Deleting an
// already removed account still reports success.
func (h *AccountsHandler) DeleteAdminAccount(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	err := h.accounts.Delete(cctx, claims.ID)
	switch {
	case err == nil:
		h.cache.invalidateHome(cctx)
	case !errors.Is(err, account.ErrNotFound):
		slog.Default().ErrorContext(cctx, "accounts.delete_admin_failed", "err", err)
		RespondInternal(ctx, "Failed to delete account.")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Account deleted successfully.")
}

func (h *AccountsHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	accounts, err := h.accounts.List(cctx)
	if err != nil {
		slog.Default().ErrorContext(cctx, "accounts.list_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	if accounts == nil {
		accounts = []account.Account{}
	}

	ctx.JSON(http.StatusOK, accounts)
}

func (h *AccountsHandler) CreateUser(ctx *gin.Context) {
	var req account.CreateRequest

	if !BindJSONOr(ctx, &req, "All fields are required") {
		return
	}

	r, err := role.FromID(req.RoleID)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role", nil)
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		respondHashErr(ctx.Request.Context(), ctx, "accounts.hash_failed", err)
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := h.accounts.Create(cctx, account.NewAccount{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         r,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already in use")
			return
		}
		slog.Default().ErrorContext(cctx, "accounts.create_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	slog.Default().InfoContext(cctx, "accounts.created", "account_id", created.ID, "role", created.Role.String())
	ctx.JSON(http.StatusCreated, created)
}

func (h *AccountsHandler) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	if id == claims.ID {
		RespondBadRequest(ctx, "Admins cannot delete themselves here", nil)
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.accounts.Delete(cctx, id); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		slog.Default().ErrorContext(cctx, "accounts.delete_failed", "account_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	h.cache.invalidateHome(cctx)

	slog.Default().InfoContext(cctx, "accounts.deleted", "account_id", id)
	RespondMessage(ctx, http.StatusOK, "User deleted successfully")
}
