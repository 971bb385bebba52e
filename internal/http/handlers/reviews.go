package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/domain/review"
	"github.com/gin-gonic/gin"
)

type ReviewStore interface {
	ListByBook(ctx context.Context, bookID int64) ([]review.Review, error)
	GetByID(ctx context.Context, id int64) (review.Review, error)
	Create(ctx context.Context, in review.NewReview) (review.Review, error)
	Update(ctx context.Context, id int64, rating *int, comment *string) (review.Review, error)
	Delete(ctx context.Context, id int64) error
}

type ReviewsHandler struct {
	reviews ReviewStore
	cache   *CatalogCache
	metrics OwnershipRecorder
}

// OwnershipRecorder counts ownership gate outcomes.
type OwnershipRecorder interface {
	RecordAuthDecision(gate, result string)
}

func NewReviewsHandler(reviews ReviewStore, catalog *CatalogCache, metrics OwnershipRecorder) *ReviewsHandler {
	return &ReviewsHandler{reviews: reviews, cache: catalog, metrics: metrics}
}

func (h *ReviewsHandler) recordGate(gate string, allowed bool) {
	if h.metrics == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	h.metrics.RecordAuthDecision(gate, result)
}

func (h *ReviewsHandler) ListForBook(ctx *gin.Context) {
	bookID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	reviews, err := h.reviews.ListByBook(cctx, bookID)
	if err != nil {
		slog.Default().ErrorContext(cctx, "reviews.list_failed", "book_id", bookID, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	if reviews == nil {
		reviews = []review.Review{}
	}

	ctx.JSON(http.StatusOK, reviews)
}

func validateRating(ctx *gin.Context, rating *int, required bool) bool {
	if rating == nil {
		if required {
			RespondBadRequest(ctx, "Rating is required", nil)
			return false
		}
		return true
	}

	if !review.ValidRating(*rating) {
		RespondBadRequest(ctx, "Rating must be between 1 and 5", nil)
		return false
	}
	return true
}

// Create posts a review as the caller.
func (h *ReviewsHandler) Create(ctx *gin.Context) {
	bookID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	var req review.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !validateRating(ctx, req.Rating, true) {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := h.reviews.Create(cctx, review.NewReview{
		UserID:  claims.ID,
		BookID:  bookID,
		Rating:  *req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx, "Book not found")
		case errors.Is(err, account.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			slog.Default().ErrorContext(cctx, "reviews.create_failed", "book_id", bookID, "err", err)
			RespondInternal(ctx, "Internal server error")
		}
		return
	}

	h.cache.invalidateHome(cctx)

	ctx.JSON(http.StatusCreated, created)
}

// Update is limited to the review's author; administrators get no override.
func (h *ReviewsHandler) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	var req review.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !validateRating(ctx, req.Rating, false) {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	existing, err := h.reviews.GetByID(cctx, id)
	if err != nil && !errors.Is(err, review.ErrNotFound) {
		slog.Default().ErrorContext(cctx, "reviews.update_lookup_failed", "review_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	// a missing review and someone else's review answer the same way
	allowed := err == nil && auth.CanEditReview(existing.UserID, claims)
	h.recordGate("review_edit", allowed)
	if !allowed {
		RespondLegacyError(ctx, http.StatusForbidden, "Unauthorized or not found")
		return
	}

	updated, err := h.reviews.Update(cctx, id, req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondLegacyError(ctx, http.StatusForbidden, "Unauthorized or not found")
			return
		}
		slog.Default().ErrorContext(cctx, "reviews.update_failed", "review_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	h.cache.invalidateHome(cctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Review updated", "review": updated})
}

// Delete is allowed for the author and for administrators.
func (h *ReviewsHandler) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	existing, err := h.reviews.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondLegacyError(ctx, http.StatusNotFound, "Review not found")
			return
		}
		slog.Default().ErrorContext(cctx, "reviews.delete_lookup_failed", "review_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	allowed := auth.CanDeleteReview(existing.UserID, claims)
	h.recordGate("review_delete", allowed)
	if !allowed {
		RespondLegacyError(ctx, http.StatusForbidden, "Unauthorized")
		return
	}

	if err := h.reviews.Delete(cctx, id); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondLegacyError(ctx, http.StatusNotFound, "Review not found")
			return
		}
		slog.Default().ErrorContext(cctx, "reviews.delete_failed", "review_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	h.cache.invalidateHome(cctx)

	slog.Default().InfoContext(cctx, "reviews.deleted", "review_id", id, "by_admin", existing.UserID != claims.ID)
	RespondMessage(ctx, http.StatusOK, "Review deleted")
}
