package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/bookstore/internal/domain/book"
)

type BooksRepo struct {
	s *Store
}

// withCategoryLocked attaches the current category row, mirroring the join.
func (s *Store) withCategoryLocked(b book.Book) book.Book {
	b.Category = nil
	if b.CategoryID != nil {
		if c, ok := s.categories[*b.CategoryID]; ok {
			cc := c
			b.Category = &cc
		}
	}
	return b
}

func (s *Store) checkCategoryLocked(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := s.categories[*id]; !ok {
		return book.ErrUnknownCategory
	}
	return nil
}

func (r *BooksRepo) ListSummaries(_ context.Context) ([]book.Summary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type agg struct{ sum, count int }
	ratings := make(map[int64]agg, len(r.s.books))

	for _, rv := range r.s.reviews {
		a := ratings[rv.BookID]
		a.sum += rv.Rating
		a.count++
		ratings[rv.BookID] = a
	}

	out := make([]book.Summary, 0, len(r.s.books))
	for id, b := range r.s.books {
		a := ratings[id]
		out = append(out, book.NewSummary(r.s.withCategoryLocked(b), a.sum, a.count))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *BooksRepo) GetByID(_ context.Context, id int64) (book.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.books[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	return r.s.withCategoryLocked(b), nil
}

func (r *BooksRepo) Create(_ context.Context, in book.Input) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkCategoryLocked(in.CategoryID); err != nil {
		return book.Book{}, err
	}

	r.s.nextBook++
	b := book.Book{
		ID:          r.s.nextBook,
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Image:       in.Image,
		CategoryID:  copyID(in.CategoryID),
		Price:       in.Price,
	}
	r.s.books[b.ID] = b

	return r.s.withCategoryLocked(b), nil
}

func (r *BooksRepo) Update(_ context.Context, id int64, in book.Input) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.books[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}

	if err := r.s.checkCategoryLocked(in.CategoryID); err != nil {
		return book.Book{}, err
	}

	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.CategoryID = copyID(in.CategoryID)
	b.Price = in.Price
	if in.Image != "" {
		b.Image = in.Image
	}

	r.s.books[id] = b
	return r.s.withCategoryLocked(b), nil
}

// Delete removes the book and cascades to its reviews.
func (r *BooksRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.books[id]; !ok {
		return book.ErrNotFound
	}

	delete(r.s.books, id)

	for rid, rv := range r.s.reviews {
		if rv.BookID == id {
			delete(r.s.reviews, rid)
		}
	}

	return nil
}

func (r *BooksRepo) ListCategories(_ context.Context) ([]book.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]book.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
