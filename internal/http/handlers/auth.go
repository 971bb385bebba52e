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

type AccountRegistrar interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, in account.NewAccount) (account.Account, error)
}

type TokenIssuer interface {
	Issue(accountID int64, email string, r role.Role) (string, error)
}

type AuthHandler struct {
	accounts AccountRegistrar
	tokens   TokenIssuer
}

func NewAuthHandler(accounts AccountRegistrar, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// Register creates a User account and logs it in.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req account.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := h.accounts.GetByEmail(cctx, req.Email)
	switch {
	case err == nil:
		RespondBadRequest(ctx, "User already exists", nil)
		return
	case !errors.Is(err, account.ErrNotFound):
		slog.Default().ErrorContext(cctx, "auth.register.lookup_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		respondHashErr(cctx, ctx, "auth.register.hash_failed", err)
		return
	}

	created, err := h.accounts.Create(cctx, account.NewAccount{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role.User,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, account.ErrEmailTaken) {
			RespondBadRequest(ctx, "User already exists", nil)
			return
		}
		slog.Default().ErrorContext(cctx, "auth.register.create_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	token, err := h.tokens.Issue(created.ID, created.Email, created.Role)
	if err != nil {
		slog.Default().ErrorContext(cctx, "auth.register.issue_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	slog.Default().InfoContext(cctx, "auth.registered", "account_id", created.ID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req account.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	found, err := h.accounts.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, "User not found, please register")
			return
		}
		slog.Default().ErrorContext(cctx, "auth.login.lookup_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	if !security.CheckPassword(found.PasswordHash, req.Password) {
		RespondUnauthorized(ctx, "Invalid password")
		return
	}

	token, err := h.tokens.Issue(found.ID, found.Email, found.Role)
	if err != nil {
		slog.Default().ErrorContext(cctx, "auth.login.issue_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
	})
}

const invalidPasswordMsg = "Password must be at most 72 bytes"

// respondHashErr answers 400 for input bcrypt rejects. max=72 on the binding
// tags counts runes, so multibyte passwords reach the hasher.
func respondHashErr(cctx context.Context, ctx *gin.Context, event string, err error) {
	if errors.Is(err, security.ErrInvalidPassword) {
		RespondBadRequest(ctx, invalidPasswordMsg, nil)
		return
	}
	slog.Default().ErrorContext(cctx, event, "err", err)
	RespondInternal(ctx, "Server error")
}
