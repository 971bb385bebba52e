// Package memory is an in-process implementation of the bookstore stores.
// It enforces the same uniqueness and referential rules as the Postgres
// schema (unique email, cascade on account/book delete, SET NULL on
// category delete) so handlers behave identically against either backend.
package memory

import (
	"sync"

	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/domain/review"
)

// DefaultCategories matches the reference data shipped with the migrations.
var DefaultCategories = []string{
	"Fiction", "Classic", "Dystopian", "Romance", "Fantasy", "Magical Realism",
	"Philosophical Fiction", "Historical Fiction", "Coming-of-Age", "Non-Fiction",
	"Poetry", "Memoir", "Business",
}

type Store struct {
	mu sync.RWMutex

	accounts   map[int64]account.Account
	books      map[int64]book.Book
	categories map[int64]book.Category
	reviews    map[int64]review.Review

	nextAccount  int64
	nextBook     int64
	nextCategory int64
	nextReview   int64
}

func NewStore() *Store {
	s := &Store{
		accounts:   make(map[int64]account.Account),
		books:      make(map[int64]book.Book),
		categories: make(map[int64]book.Category),
		reviews:    make(map[int64]review.Review),
	}

	for _, name := range DefaultCategories {
		s.nextCategory++
		s.categories[s.nextCategory] = book.Category{ID: s.nextCategory, Category: name}
	}

	return s
}

func (s *Store) Accounts() *AccountsRepo { return &AccountsRepo{s: s} }
func (s *Store) Books() *BooksRepo       { return &BooksRepo{s: s} }
func (s *Store) Reviews() *ReviewsRepo   { return &ReviewsRepo{s: s} }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
