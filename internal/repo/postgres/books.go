package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/jackc/pgx/v5"
)

type BooksRepo struct {
	db  DBTX
	obs Observer
}

func NewBooksRepo(db DBTX, obs Observer) *BooksRepo {
	return &BooksRepo{db: db, obs: observerOrNoop(obs)}
}

// bookSelect expects the book row aliased as b and the category as c.
const bookSelect = `b.id, b.title, b.author, b.description, b.image, b.category_id, b.price, c.id, c.category`

type bookRow struct {
	b           book.Book
	description *string
	image       *string
	catID       *int64
	catName     *string
}

func (br *bookRow) dest() []any {
	return []any{&br.b.ID, &br.b.Title, &br.b.Author, &br.description, &br.image, &br.b.CategoryID, &br.b.Price, &br.catID, &br.catName}
}

func (br *bookRow) book() book.Book {
	b := br.b
	if br.description != nil {
		b.Description = *br.description
	}
	if br.image != nil {
		b.Image = *br.image
	}
	if br.catID != nil && br.catName != nil {
		b.Category = &book.Category{ID: *br.catID, Category: *br.catName}
	}
	return b
}

func mapBookErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return book.ErrNotFound
	}
	if code, _ := pgCode(err); code == codeForeignKeyViolation {
		return book.ErrUnknownCategory
	}
	return err
}

// ListSummaries returns every book with its rating aggregate, ordered by id.
func (r *BooksRepo) ListSummaries(ctx context.Context) ([]book.Summary, error) {
	out := make([]book.Summary, 0)

	err := r.obs.ObserveDB("books.list_summaries", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT `+bookSelect+`, COALESCE(SUM(rv.rating), 0), COUNT(rv.id)
			FROM books b
			LEFT JOIN book_categories c ON c.id = b.category_id
			LEFT JOIN reviews rv ON rv.book_id = b.id
			GROUP BY b.id, c.id
			ORDER BY b.id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var br bookRow
			var sum, count int

			if err := rows.Scan(append(br.dest(), &sum, &count)...); err != nil {
				return err
			}
			out = append(out, book.NewSummary(br.book(), sum, count))
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BooksRepo) GetByID(ctx context.Context, id int64) (book.Book, error) {
	var br bookRow

	err := r.obs.ObserveDB("books.get_by_id", func() error {
		return r.db.QueryRow(ctx,
			`SELECT `+bookSelect+`
			FROM books b
			LEFT JOIN book_categories c ON c.id = b.category_id
			WHERE b.id = $1`, id).Scan(br.dest()...)
	})

	if err != nil {
		return book.Book{}, mapBookErr(err)
	}
	return br.book(), nil
}

func (r *BooksRepo) Create(ctx context.Context, in book.Input) (book.Book, error) {
	var br bookRow

	err := r.obs.ObserveDB("books.create", func() error {
		return r.db.QueryRow(ctx,
			`WITH b AS (
				INSERT INTO books (title, author, description, image, category_id, price)
				VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
				RETURNING *
			)
			SELECT `+bookSelect+`
			FROM b LEFT JOIN book_categories c ON c.id = b.category_id`,
			in.Title, in.Author, in.Description, in.Image, in.CategoryID, in.Price,
		).Scan(br.dest()...)
	})

	if err != nil {
		return book.Book{}, mapBookErr(err)
	}
	return br.book(), nil
}

// Update replaces every editable field. The stored image is kept when
// in.Image is empty.
func (r *BooksRepo) Update(ctx context.Context, id int64, in book.Input) (book.Book, error) {
	var br bookRow

	err := r.obs.ObserveDB("books.update", func() error {
		return r.db.QueryRow(ctx,
			`WITH b AS (
				UPDATE books
					SET title = $2,
						author = $3,
						description = NULLIF($4, ''),
						image = COALESCE(NULLIF($5, ''), image),
						category_id = $6,
						price = $7
				WHERE id = $1
				RETURNING *
			)
			SELECT `+bookSelect+`
			FROM b LEFT JOIN book_categories c ON c.id = b.category_id`,
			id, in.Title, in.Author, in.Description, in.Image, in.CategoryID, in.Price,
		).Scan(br.dest()...)
	})

	if err != nil {
		return book.Book{}, mapBookErr(err)
	}
	return br.book(), nil
}

func (r *BooksRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.obs.ObserveDB("books.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return book.ErrNotFound
	}
	return nil
}

func (r *BooksRepo) ListCategories(ctx context.Context) ([]book.Category, error) {
	out := make([]book.Category, 0)

	err := r.obs.ObserveDB("categories.list", func() error {
		rows, err := r.db.Query(ctx, `SELECT id, category FROM book_categories ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c book.Category
			if err := rows.Scan(&c.ID, &c.Category); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
