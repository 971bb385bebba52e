package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/domain/review"
)

type ReviewsRepo struct {
	s *Store
}

func cloneReview(rv review.Review) review.Review {
	rv.Comment = cloneString(rv.Comment)
	rv.User = nil
	return rv
}

func (r *ReviewsRepo) ListByBook(_ context.Context, bookID int64) ([]review.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]review.Review, 0)
	for _, rv := range r.s.reviews {
		if rv.BookID != bookID {
			continue
		}

		c := cloneReview(rv)
		if a, ok := r.s.accounts[rv.UserID]; ok {
			c.User = &review.Author{Name: a.Name}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *ReviewsRepo) GetByID(_ context.Context, id int64) (review.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	return cloneReview(rv), nil
}

func (r *ReviewsRepo) Create(_ context.Context, in review.NewReview) (review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[in.UserID]; !ok {
		return review.Review{}, account.ErrNotFound
	}
	if _, ok := r.s.books[in.BookID]; !ok {
		return review.Review{}, book.ErrNotFound
	}

	r.s.nextReview++
	rv := review.Review{
		ID:      r.s.nextReview,
		UserID:  in.UserID,
		BookID:  in.BookID,
		Rating:  in.Rating,
		Comment: cloneString(in.Comment),
	}
	r.s.reviews[rv.ID] = rv

	return cloneReview(rv), nil
}

func (r *ReviewsRepo) Update(_ context.Context, id int64, rating *int, comment *string) (review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}

	if rating != nil {
		rv.Rating = *rating
	}
	if comment != nil {
		rv.Comment = cloneString(comment)
	}

	r.s.reviews[id] = rv
	return cloneReview(rv), nil
}

func (r *ReviewsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return review.ErrNotFound
	}
	delete(r.s.reviews, id)
	return nil
}
