package review

import "errors"

var ErrNotFound = errors.New("review not found")

const (
	MinRating = 1
	MaxRating = 5
)

type Author struct {
	Name string `json:"name"`
}

type Review struct {
	ID      int64   `json:"id"`
	UserID  int64   `json:"userId"`
	BookID  int64   `json:"bookId"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
	User    *Author `json:"User,omitempty"`
}

type NewReview struct {
	UserID  int64
	BookID  int64
	Rating  int
	Comment *string
}

// CreateRequest uses a pointer so a missing rating can be told apart from 0.
type CreateRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

type UpdateRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
