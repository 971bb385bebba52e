package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/bookstore/internal/domain/book"
)

// CatalogStore is the subset of the book repository the sample seed needs.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]book.Category, error)
	ListSummaries(ctx context.Context) ([]book.Summary, error)
	Create(ctx context.Context, in book.Input) (book.Book, error)
}

type sampleBook struct {
	title, author, description, image, category string
	price                                        float64
}

var sampleCatalog = []sampleBook{
	{"To Kill a Mockingbird", "Harper Lee", "A powerful story of racial injustice and childhood innocence set in the American South.", "/assets/to_kill_a_mocking_bird.jpg", "Classic", 15.99},
	{"1984", "George Orwell", "A dystopian novel about totalitarianism, surveillance, and the loss of individual freedom.", "/assets/1984.jpg", "Dystopian", 14.5},
	{"Pride and Prejudice", "Jane Austen", "A witty romance that critiques class, marriage, and manners in 19th-century England.", "/assets/pride_and_prejudice.jpg", "Romance", 12.99},
	{"The Great Gatsby", "F. Scott Fitzgerald", "A tragic love story and a critique of the American Dream during the Roaring Twenties.", "/assets/the_great_gatsby.jpeg", "Classic", 13.25},
	{"One Hundred Years of Solitude", "Gabriel García Márquez", "A multi-generational magical realism saga of the Buendía family in Macondo.", "/assets/100_year_of_solitude.jpeg", "Magical Realism", 16.75},
	{"Crime and Punishment", "Fyodor Dostoevsky", "A psychological novel about guilt, morality, and redemption following a murder.", "/assets/crime_and_punishment.jpeg", "Philosophical Fiction", 14.99},
	{"The Brothers Karamazov", "Fyodor Dostoevsky", "A spiritual and philosophical novel exploring morality, free will, and faith through family drama.", "/assets/the_brothers_karamazov.jpeg", "Philosophical Fiction", 17.5},
	{"War and Peace", "Leo Tolstoy", "An epic tale blending love, war, and history during the Napoleonic invasion of Russia.", "/assets/war_and_peace.jpeg", "Historical Fiction", 18.99},
	{"The Catcher in the Rye", "J.D. Salinger", "A coming-of-age novel capturing teenage rebellion and alienation in post-war America.", "/assets/the_catcher_in_the_rye.jpeg", "Coming-of-Age", 13.99},
	{"The Lord of the Rings", "J.R.R. Tolkien", "An epic fantasy adventure about friendship, power, and the fight between good and evil.", "/assets/the_lord_of_the_rings.jpeg", "Fantasy", 22.0},
}

// SeedCatalog inserts the sample books whose title is not in the catalog yet
// and reports how many were added. Unknown category names leave the book
// uncategorised.
func SeedCatalog(ctx context.Context, books CatalogStore) (int, error) {
	categories, err := books.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}

	byName := make(map[string]int64, len(categories))
	for _, c := range categories {
		byName[c.Category] = c.ID
	}

	existing, err := books.ListSummaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		have[s.Title] = struct{}{}
	}

	inserted := 0
	for _, s := range sampleCatalog {
		if _, ok := have[s.title]; ok {
			continue
		}

		in := book.Input{
			Title:       s.title,
			Author:      s.author,
			Description: s.description,
			Image:       s.image,
			Price:       s.price,
		}
		if id, ok := byName[s.category]; ok {
			in.CategoryID = &id
		}

		if _, err := books.Create(ctx, in); err != nil {
			return inserted, fmt.Errorf("insert %q: %w", s.title, err)
		}
		inserted++
	}

	return inserted, nil
}
