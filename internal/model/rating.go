package model

import "time"

// Rating is a user's 1..5 star rating and optional review for a
// book. One rating per (book, user); re-rating updates in place.
// Only users who have borrowed the book may rate it.
type Rating struct {
	ID        uint64    // ratings.id
	BookID    uint64    // ratings.book_id
	UserID    uint64    // ratings.user_id
	Rating    uint8     // ratings.rating (1..5)
	Review    string    // ratings.review
	CreatedAt time.Time // ratings.created_at
	UpdatedAt time.Time // ratings.updated_at
}
