package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/openshelf/library-api/internal/model"
)

// RequestRepo provides data access to the book_requests table (student
// acquisition requests). A request is decided at most once; the PENDING
// guard in the decision UPDATE makes concurrent approvals safe without an
// explicit lock.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

var ErrRequestNotFound = errors.New("book request not found")

// Create inserts a PENDING request and writes the generated ID back.
func (r *RequestRepo) Create(ctx context.Context, req *model.BookRequest) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO book_requests (user_id, title, author, note, status) VALUES (?,?,?,?,?)",
		req.UserID, req.Title, req.Author, req.Note, model.RequestStatusPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	req.Status = model.RequestStatusPending
	return nil
}

// RequestDetail is a request joined with the requester's email.
type RequestDetail struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	UserEmail string     `json:"user_email"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Note      string     `json:"note,omitempty"`
	Status    string     `json:"status"`
	DecidedBy *uint64    `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func scanRequestDetail(scan func(dest ...any) error) (RequestDetail, error) {
	var d RequestDetail
	var decidedBy sql.NullInt64
	var decidedAt sql.NullTime
	err := scan(&d.ID, &d.UserID, &d.UserEmail, &d.Title, &d.Author, &d.Note,
		&d.Status, &decidedBy, &decidedAt, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	if decidedBy.Valid {
		v := uint64(decidedBy.Int64)
		d.DecidedBy = &v
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		d.DecidedAt = &t
	}
	return d, nil
}

const requestDetailSQL = `SELECT r.id, r.user_id, u.email, r.title, r.author, r.note,
        r.status, r.decided_by, r.decided_at, r.created_at
        FROM book_requests r
        JOIN users u ON u.id = r.user_id`

// List returns all requests for staff triage, optionally filtered by
// status, newest first.
func (r *RequestRepo) List(ctx context.Context, status string) ([]RequestDetail, error) {
	q := requestDetailSQL
	args := []any{}
	if status != "" {
		q += " WHERE r.status = ?"
		args = append(args, strings.ToUpper(status))
	}
	q += " ORDER BY r.created_at DESC, r.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RequestDetail, 0)
	for rows.Next() {
		d, err := scanRequestDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByUser returns the user's own requests, newest first.
func (r *RequestRepo) ListByUser(ctx context.Context, userID uint64) ([]RequestDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		requestDetailSQL+" WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RequestDetail, 0)
	for rows.Next() {
		d, err := scanRequestDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Decide moves a PENDING request to APPROVED or REJECTED and returns the
// decided row. ErrRequestNotFound when the ID does not exist, ErrConflict
// when a decision was already made.
func (r *RequestRepo) Decide(ctx context.Context, id, deciderID uint64, approve bool) (*RequestDetail, error) {
	status := model.RequestStatusRejected
	if approve {
		status = model.RequestStatusApproved
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE book_requests SET status=?, decided_by=?, decided_at=NOW() WHERE id=? AND status=?",
		status, deciderID, id, model.RequestStatusPending)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Distinguish missing from already decided.
		var existing string
		err := r.db.QueryRowContext(ctx,
			"SELECT status FROM book_requests WHERE id=? LIMIT 1", id).Scan(&existing)
		if err == sql.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	d, err := scanRequestDetail(r.db.QueryRowContext(ctx,
		requestDetailSQL+" WHERE r.id = ?", id).Scan)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountPending returns the number of undecided requests (reports).
func (r *RequestRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM book_requests WHERE status=?",
		model.RequestStatusPending).Scan(&n)
	return n, err
}
