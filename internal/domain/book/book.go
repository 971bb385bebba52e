package book

import (
	"errors"
	"math"
)

var (
	ErrNotFound        = errors.New("book not found")
	ErrUnknownCategory = errors.New("unknown category")
)

const NoCategory = "No category"

type Category struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
}

// Book mirrors the catalog row. The nested category keeps the key name the
// browser client already reads.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CategoryID  *int64    `json:"categoryId"`
	Price       float64   `json:"price"`
	Category    *Category `json:"BookCategory"`
}

// Summary is a catalog listing entry with its rating aggregate.
type Summary struct {
	Book
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
	CategoryName  string  `json:"categoryName"`
}

// NewSummary computes the listing aggregate from a rating total.
func NewSummary(b Book, ratingSum, reviewCount int) Summary {
	s := Summary{Book: b, ReviewCount: reviewCount, CategoryName: NoCategory}

	if reviewCount > 0 {
		s.AverageRating = RoundRating(float64(ratingSum) / float64(reviewCount))
	}

	if b.Category != nil && b.Category.Category != "" {
		s.CategoryName = b.Category.Category
	}

	return s
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// Input is the validated create/update payload. Books are submitted as
// multipart forms because they may carry a cover image.
type Input struct {
	Title       string  `form:"title" json:"title" binding:"required,max=255"`
	Author      string  `form:"author" json:"author" binding:"required,max=100"`
	Description string  `form:"description" json:"description" binding:"omitempty,max=1000"`
	Price       float64 `form:"price" json:"price" binding:"required,gte=0"`
	CategoryID  *int64  `form:"categoryId" json:"categoryId" binding:"omitempty,gte=0"`
	Image       string  `form:"-" json:"-"`
}

// Normalize treats an empty or zero category as "no category". Browsers
// submit the unselected option as an empty field, which binds to 0.
func (in *Input) Normalize() {
	if in.CategoryID != nil && *in.CategoryID == 0 {
		in.CategoryID = nil
	}
}
