package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openshelf/library-api/internal/model"
)

// HoldRepo provides data access to the holds table. Holds are placed on
// books with no available copies and expire automatically; expired rows
// are transitioned lazily by ExpireForBookTx before availability checks,
// mirroring how open loans are swept.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

var (
	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExists   = errors.New("active hold already exists for this book")
)

// ExpireForBookTx flips ACTIVE holds on a book whose expires_at has passed
// to EXPIRED. Call inside the same transaction as the availability check
// so a lapsed hold cannot influence the decision.
func (r *HoldRepo) ExpireForBookTx(ctx context.Context, tx *sql.Tx, bookID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE holds SET status=? WHERE book_id=? AND status=? AND expires_at <= UTC_TIMESTAMP()`,
		model.HoldStatusExpired, bookID, model.HoldStatusActive)
	return err
}

// CreateTx inserts an ACTIVE hold within the transaction, enforcing one
// active hold per (book, user). The generated ID is written back.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM holds WHERE book_id=? AND user_id=? AND status=? LIMIT 1",
		h.BookID, h.UserID, model.HoldStatusActive).Scan(&one)
	if err == nil {
		return ErrHoldExists
	}
	if err != sql.ErrNoRows {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO holds (book_id, user_id, expires_at, status) VALUES (?,?,?,?)",
		h.BookID, h.UserID,
		h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
		model.HoldStatusActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.Status = model.HoldStatusActive
	return nil
}

// FulfillTx marks the user's ACTIVE hold on a book FULFILLED, if any.
// Called when a librarian issues the book to the holder.
func (r *HoldRepo) FulfillTx(ctx context.Context, tx *sql.Tx, bookID, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE holds SET status=? WHERE book_id=? AND user_id=? AND status=?",
		model.HoldStatusFulfilled, bookID, userID, model.HoldStatusActive)
	return err
}

// OldestActiveTx returns the longest-waiting non-expired ACTIVE hold for a
// book, or ErrHoldNotFound when nobody is waiting. Used on return to pick
// who gets notified that a copy is back.
func (r *HoldRepo) OldestActiveTx(ctx context.Context, tx *sql.Tx, bookID uint64) (model.Hold, error) {
	var h model.Hold
	err := tx.QueryRowContext(ctx,
		`SELECT id, book_id, user_id, expires_at, status, created_at
         FROM holds
         WHERE book_id=? AND status=? AND expires_at > UTC_TIMESTAMP()
         ORDER BY created_at, id LIMIT 1`,
		bookID, model.HoldStatusActive).Scan(
		&h.ID, &h.BookID, &h.UserID, &h.ExpiresAt, &h.Status, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return h, ErrHoldNotFound
	}
	return h, err
}

// Cancel transitions the caller's own ACTIVE hold to CANCELLED. Returns
// ErrHoldNotFound when the hold does not exist, ErrForbidden when it
// belongs to someone else and ErrConflict when it is no longer active.
func (r *HoldRepo) Cancel(ctx context.Context, holdID, userID uint64) error {
	var ownerID uint64
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, status FROM holds WHERE id=? LIMIT 1", holdID).Scan(&ownerID, &status)
	if err == sql.ErrNoRows {
		return ErrHoldNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != userID {
		return ErrForbidden
	}
	if status != model.HoldStatusActive {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE holds SET status=? WHERE id=? AND status=?",
		model.HoldStatusCancelled, holdID, model.HoldStatusActive)
	return err
}

// HoldDetail is a hold joined with its book title for display.
type HoldDetail struct {
	ID        uint64    `json:"id"`
	BookID    uint64    `json:"book_id"`
	BookTitle string    `json:"book_title"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListByUser returns a user's holds, newest first. Lapsed ACTIVE rows are
// reported as EXPIRED without writing; the write happens on the next
// availability check that touches the book.
func (r *HoldRepo) ListByUser(ctx context.Context, userID uint64) ([]HoldDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.id, h.book_id, b.title,
                h.expires_at,
                CASE WHEN h.status=? AND h.expires_at <= UTC_TIMESTAMP() THEN ? ELSE h.status END,
                h.created_at
         FROM holds h
         JOIN books b ON b.id = h.book_id
         WHERE h.user_id = ?
         ORDER BY h.created_at DESC, h.id DESC`,
		model.HoldStatusActive, model.HoldStatusExpired, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]HoldDetail, 0)
	for rows.Next() {
		var d HoldDetail
		if err := rows.Scan(&d.ID, &d.BookID, &d.BookTitle, &d.ExpiresAt, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountActive returns the number of ACTIVE, unexpired holds (reports).
func (r *HoldRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holds WHERE status=? AND expires_at > UTC_TIMESTAMP()",
		model.HoldStatusActive).Scan(&n)
	return n, err
}
