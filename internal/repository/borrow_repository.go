package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/openshelf/library-api/internal/model"
)

// BorrowRepo provides data access to the borrowings table. Issue and
// return are orchestrated by handlers inside a single transaction that
// also locks the book row, so the availability counter and the borrowing
// rows never drift apart. All timestamps are UTC.
type BorrowRepo struct {
	db *sql.DB
}

// NewBorrowRepo returns a new BorrowRepo bound to the given database.
func NewBorrowRepo(db *sql.DB) *BorrowRepo { return &BorrowRepo{db: db} }

// DB exposes the underlying handle for transaction scoping.
func (r *BorrowRepo) DB() *sql.DB { return r.db }

var (
	ErrLoanNotFound    = errors.New("borrowing not found")
	ErrAlreadyReturned = errors.New("borrowing already returned")
	ErrAlreadyBorrowed = errors.New("user already has this book on loan")
	ErrLoanLimit       = errors.New("open loan limit reached")
)

// FineCents computes the fine for a loan returned at `returned` that was
// due at `due`: whole days late times the per-day rate, zero when on time.
// Partial days do not count; a loan returned 23h late owes nothing.
func FineCents(due, returned time.Time, ratePerDayCents int) int64 {
	if !returned.After(due) {
		return 0
	}
	days := int64(returned.Sub(due).Hours() / 24)
	return days * int64(ratePerDayCents)
}

// CreateTx inserts a borrowing row within an existing transaction and
// writes the generated ID back onto the record. Status starts BORROWED.
func (r *BorrowRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO borrowings (book_id, user_id, issued_by, borrowed_at, due_at, status)
         VALUES (?,?,?,?,?,?)`,
		b.BookID, b.UserID, b.IssuedBy,
		b.BorrowedAt.UTC().Format("2006-01-02 15:04:05"),
		b.DueAt.UTC().Format("2006-01-02 15:04:05"),
		model.BorrowStatusBorrowed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BorrowStatusBorrowed
	return nil
}

// CountOpenByUserTx returns the number of open borrowings for a user.
func (r *BorrowRepo) CountOpenByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM borrowings WHERE user_id=? AND returned_at IS NULL",
		userID).Scan(&n)
	return n, err
}

// HasOpenTx reports whether the user already has an open borrowing of the
// given book. A user holds at most one copy of a title at a time.
func (r *BorrowRepo) HasOpenTx(ctx context.Context, tx *sql.Tx, userID, bookID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM borrowings WHERE user_id=? AND book_id=? AND returned_at IS NULL LIMIT 1",
		userID, bookID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetForUpdateTx loads a borrowing with a row lock. Return flows lock the
// loan before the book so the two-row lock order is consistent everywhere.
func (r *BorrowRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Borrowing, error) {
	var b model.Borrowing
	var returnedAt sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT id, book_id, user_id, issued_by, borrowed_at, due_at, returned_at, fine_cents, status, created_at, updated_at
         FROM borrowings WHERE id=? FOR UPDATE`, id).Scan(
		&b.ID, &b.BookID, &b.UserID, &b.IssuedBy, &b.BorrowedAt, &b.DueAt,
		&returnedAt, &b.FineCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, ErrLoanNotFound
	}
	if err != nil {
		return b, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		b.ReturnedAt = &t
	}
	return b, nil
}

// MarkReturnedTx closes a borrowing: sets returned_at, the computed fine
// and the RETURNED status. The caller must already hold the row lock and
// have verified the loan is open.
func (r *BorrowRepo) MarkReturnedTx(ctx context.Context, tx *sql.Tx, id uint64, returnedAt time.Time, fineCents int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE borrowings SET returned_at=?, fine_cents=?, status=? WHERE id=?",
		returnedAt.UTC().Format("2006-01-02 15:04:05"), fineCents,
		model.BorrowStatusReturned, id)
	return err
}

// OverdueLoan identifies a loan flipped to OVERDUE by a sweep, with enough
// context for the notification event.
type OverdueLoan struct {
	ID        uint64
	UserID    uint64
	BookID    uint64
	BookTitle string
	DueAt     time.Time
}

// SweepOverdue marks all open loans past due as OVERDUE and returns the
// rows that changed state in this sweep. Already-OVERDUE rows are left
// alone so repeated sweeps emit each notification once.
func (r *BorrowRepo) SweepOverdue(ctx context.Context, now time.Time) ([]OverdueLoan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cutoff := now.UTC().Format("2006-01-02 15:04:05")
	rows, err := tx.QueryContext(ctx,
		`SELECT br.id, br.user_id, br.book_id, b.title, br.due_at
         FROM borrowings br
         JOIN books b ON b.id = br.book_id
         WHERE br.returned_at IS NULL AND br.status = ? AND br.due_at < ?
         FOR UPDATE`,
		model.BorrowStatusBorrowed, cutoff)
	if err != nil {
		return nil, err
	}
	swept := make([]OverdueLoan, 0)
	for rows.Next() {
		var o OverdueLoan
		if err := rows.Scan(&o.ID, &o.UserID, &o.BookID, &o.BookTitle, &o.DueAt); err != nil {
			rows.Close()
			return nil, err
		}
		swept = append(swept, o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(swept) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return swept, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE borrowings SET status = ?
         WHERE returned_at IS NULL AND status = ? AND due_at < ?`,
		model.BorrowStatusOverdue, model.BorrowStatusBorrowed, cutoff)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return swept, nil
}

// BorrowListQuery defines filters & pagination for the staff loan listing.
type BorrowListQuery struct {
	Status      string
	UserID      uint64
	BookID      uint64
	OnlyOverdue bool // open loans past due regardless of persisted status
	Page        int
	PageSize    int
}

// BorrowDetail is a borrowing joined with book and borrower context for
// display. ReturnedAt is null while the loan is open. FineCents holds the
// stored fine for closed loans and a live preview for open overdue ones.
type BorrowDetail struct {
	ID            uint64     `json:"id"`
	BookID        uint64     `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	BookISBN      string     `json:"book_isbn"`
	UserID        uint64     `json:"user_id"`
	UserEmail     string     `json:"user_email"`
	IssuedBy      uint64     `json:"issued_by"`
	BorrowedAt    time.Time  `json:"borrowed_at"`
	DueAt         time.Time  `json:"due_at"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	FineCents     int64      `json:"fine_cents"`
	FineIsPreview bool       `json:"fine_is_preview,omitempty"`
	Status        string     `json:"status"`
}

const borrowDetailCols = `br.id, br.book_id, b.title, b.isbn, br.user_id, u.email,
        br.issued_by, br.borrowed_at, br.due_at, br.returned_at, br.fine_cents, br.status`

const borrowDetailFrom = ` FROM borrowings br
        JOIN books b ON b.id = br.book_id
        JOIN users u ON u.id = br.user_id`

func scanBorrowDetail(rows interface{ Scan(...any) error }) (BorrowDetail, error) {
	var d BorrowDetail
	var returnedAt sql.NullTime
	err := rows.Scan(&d.ID, &d.BookID, &d.BookTitle, &d.BookISBN, &d.UserID, &d.UserEmail,
		&d.IssuedBy, &d.BorrowedAt, &d.DueAt, &returnedAt, &d.FineCents, &d.Status)
	if err != nil {
		return d, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		d.ReturnedAt = &t
	}
	return d, nil
}

// List returns a page of loans for staff plus the total count.
func (r *BorrowRepo) List(ctx context.Context, q BorrowListQuery) ([]BorrowDetail, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Status != "" {
		where = append(where, "br.status = ?")
		args = append(args, strings.ToUpper(q.Status))
	}
	if q.UserID != 0 {
		where = append(where, "br.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.BookID != 0 {
		where = append(where, "br.book_id = ?")
		args = append(args, q.BookID)
	}
	if q.OnlyOverdue {
		where = append(where, "br.returned_at IS NULL AND br.due_at < UTC_TIMESTAMP()")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*)"+borrowDetailFrom+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+borrowDetailCols+borrowDetailFrom+" WHERE "+cond+
			" ORDER BY br.created_at DESC, br.id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]BorrowDetail, 0)
	for rows.Next() {
		d, err := scanBorrowDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// GetDetail loads one loan with book and borrower context.
func (r *BorrowRepo) GetDetail(ctx context.Context, id uint64) (*BorrowDetail, error) {
	d, err := scanBorrowDetail(r.db.QueryRowContext(ctx,
		"SELECT "+borrowDetailCols+borrowDetailFrom+" WHERE br.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByUser returns a user's own borrowing history, newest first.
func (r *BorrowRepo) ListByUser(ctx context.Context, userID uint64) ([]BorrowDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+borrowDetailCols+borrowDetailFrom+
			" WHERE br.user_id = ? ORDER BY br.created_at DESC, br.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BorrowDetail, 0)
	for rows.Next() {
		d, err := scanBorrowDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// HasEverBorrowed reports whether the user has any borrowing (open or
// returned) of the book. Gates rating submission.
func (r *BorrowRepo) HasEverBorrowed(ctx context.Context, userID, bookID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM borrowings WHERE user_id=? AND book_id=? LIMIT 1",
		userID, bookID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
