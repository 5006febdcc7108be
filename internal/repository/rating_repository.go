package repository

import (
	"context"
	"database/sql"
	"time"
)

// RatingRepo provides data access to the ratings table. One rating per
// (book, user) is enforced by a unique key; Upsert relies on it so
// re-rating updates in place.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo returns a new RatingRepo bound to the given database.
func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Upsert inserts or replaces the user's rating for a book. Callers gate
// on BorrowRepo.HasEverBorrowed; the repository only persists.
func (r *RatingRepo) Upsert(ctx context.Context, bookID, userID uint64, rating uint8, review string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (book_id, user_id, rating, review)
         VALUES (?,?,?,?)
         ON DUPLICATE KEY UPDATE rating=VALUES(rating), review=VALUES(review)`,
		bookID, userID, rating, review)
	return err
}

// RatingDetail is a review row for the public book page.
type RatingDetail struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    uint8     `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListByBook returns all reviews for a book, newest first.
func (r *RatingRepo) ListByBook(ctx context.Context, bookID uint64) ([]RatingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rt.id, rt.user_id, u.full_name, rt.rating, rt.review, rt.created_at, rt.updated_at
         FROM ratings rt
         JOIN users u ON u.id = rt.user_id
         WHERE rt.book_id = ?
         ORDER BY rt.updated_at DESC, rt.id DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RatingDetail, 0)
	for rows.Next() {
		var d RatingDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserName, &d.Rating, &d.Review,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetForUser returns the user's own rating of a book, if any.
func (r *RatingRepo) GetForUser(ctx context.Context, bookID, userID uint64) (*RatingDetail, error) {
	var d RatingDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT rt.id, rt.user_id, u.full_name, rt.rating, rt.review, rt.created_at, rt.updated_at
         FROM ratings rt
         JOIN users u ON u.id = rt.user_id
         WHERE rt.book_id = ? AND rt.user_id = ? LIMIT 1`,
		bookID, userID).Scan(&d.ID, &d.UserID, &d.UserName, &d.Rating, &d.Review,
		&d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
