package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/domain/review"
	"github.com/jackc/pgx/v5"
)

type ReviewsRepo struct {
	db  DBTX
	obs Observer
}

func NewReviewsRepo(db DBTX, obs Observer) *ReviewsRepo {
	return &ReviewsRepo{db: db, obs: observerOrNoop(obs)}
}

const reviewColumns = `id, user_id, book_id, rating, comment`

func scanReview(row pgx.Row) (review.Review, error) {
	var rv review.Review
	err := row.Scan(&rv.ID, &rv.UserID, &rv.BookID, &rv.Rating, &rv.Comment)
	return rv, err
}

func mapReviewErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return review.ErrNotFound
	}
	if code, constraint := pgCode(err); code == codeForeignKeyViolation {
		// a token can outlive its account, so the author may be gone too
		if constraint == "reviews_user_id_fkey" {
			return account.ErrNotFound
		}
		return book.ErrNotFound
	}
	return err
}

// ListByBook returns a book's reviews with each author's display name.
func (r *ReviewsRepo) ListByBook(ctx context.Context, bookID int64) ([]review.Review, error) {
	out := make([]review.Review, 0)

	err := r.obs.ObserveDB("reviews.list_by_book", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT rv.id, rv.user_id, rv.book_id, rv.rating, rv.comment, u.name
			FROM reviews rv
			JOIN users u ON u.id = rv.user_id
			WHERE rv.book_id = $1
			ORDER BY rv.id ASC`, bookID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rv review.Review
			var author review.Author

			if err := rows.Scan(&rv.ID, &rv.UserID, &rv.BookID, &rv.Rating, &rv.Comment, &author.Name); err != nil {
				return err
			}
			rv.User = &author
			out = append(out, rv)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewsRepo) GetByID(ctx context.Context, id int64) (review.Review, error) {
	var rv review.Review

	err := r.obs.ObserveDB("reviews.get_by_id", func() error {
		var err error
		rv, err = scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return review.Review{}, mapReviewErr(err)
	}
	return rv, nil
}

func (r *ReviewsRepo) Create(ctx context.Context, in review.NewReview) (review.Review, error) {
	var rv review.Review

	err := r.obs.ObserveDB("reviews.create", func() error {
		var err error
		rv, err = scanReview(r.db.QueryRow(ctx,
			`INSERT INTO reviews (user_id, book_id, rating, comment)
			VALUES ($1, $2, $3, $4)
			RETURNING `+reviewColumns,
			in.UserID, in.BookID, in.Rating, in.Comment,
		))
		return err
	})

	if err != nil {
		return review.Review{}, mapReviewErr(err)
	}
	return rv, nil
}

// Update changes the non-nil fields only.
func (r *ReviewsRepo) Update(ctx context.Context, id int64, rating *int, comment *string) (review.Review, error) {
	var rv review.Review

	err := r.obs.ObserveDB("reviews.update", func() error {
		var err error
		rv, err = scanReview(r.db.QueryRow(ctx,
			`UPDATE reviews
				SET rating = COALESCE($2, rating),
					comment = COALESCE($3, comment)
			WHERE id = $1
			RETURNING `+reviewColumns,
			id, rating, comment,
		))
		return err
	})

	if err != nil {
		return review.Review{}, mapReviewErr(err)
	}
	return rv, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.obs.ObserveDB("reviews.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return review.ErrNotFound
	}
	return nil
}
