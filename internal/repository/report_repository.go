package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/library-api/internal/model"
)

// ReportRepo aggregates read-only statistics for the admin dashboard. It
// only issues COUNT/SUM/GROUP BY queries, never writes.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a new ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// Overview is the admin dashboard headline block.
type Overview struct {
	Books           int64 `json:"books"`
	Copies          int64 `json:"copies"`
	CopiesAvailable int64 `json:"copies_available"`
	ActiveLoans     int64 `json:"active_loans"`
	OverdueLoans    int64 `json:"overdue_loans"`
	FinesCents      int64 `json:"fines_cents"`
	Students        int64 `json:"students"`
	PendingRequests int64 `json:"pending_requests"`
	ActiveHolds     int64 `json:"active_holds"`
}

// Overview collects the headline counters in one round trip per table.
// Overdue counts open loans past due regardless of whether the sweep has
// persisted the OVERDUE status yet.
func (r *ReportRepo) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(available),0) FROM books`).
		Scan(&o.Books, &o.Copies, &o.CopiesAvailable); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT
            COALESCE(SUM(returned_at IS NULL),0),
            COALESCE(SUM(returned_at IS NULL AND due_at < UTC_TIMESTAMP()),0),
            COALESCE(SUM(fine_cents),0)
         FROM borrowings`).
		Scan(&o.ActiveLoans, &o.OverdueLoans, &o.FinesCents); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=? AND is_active=1", model.RoleStudent).
		Scan(&o.Students); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM book_requests WHERE status=?", model.RequestStatusPending).
		Scan(&o.PendingRequests); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holds WHERE status=? AND expires_at > UTC_TIMESTAMP()",
		model.HoldStatusActive).
		Scan(&o.ActiveHolds); err != nil {
		return nil, err
	}
	return &o, nil
}

// TopBook is one row of the most-borrowed report.
type TopBook struct {
	BookID    uint64 `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	LoanCount int64  `json:"loan_count"`
}

// TopBooks returns the most-borrowed books of all time, ties broken by
// title for stable output.
func (r *ReportRepo) TopBooks(ctx context.Context, limit int) ([]TopBook, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.title, b.author, COUNT(br.id) AS loans
         FROM books b
         JOIN borrowings br ON br.book_id = b.id
         GROUP BY b.id, b.title, b.author
         ORDER BY loans DESC, b.title
         LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TopBook, 0)
	for rows.Next() {
		var t TopBook
		if err := rows.Scan(&t.BookID, &t.Title, &t.Author, &t.LoanCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FineBucket is fines collected on one calendar day (by return date).
type FineBucket struct {
	Day        string `json:"day"` // YYYY-MM-DD
	FinesCents int64  `json:"fines_cents"`
}

// FinesBetween sums fines per day over [from, to] by return date. Days
// without returns are omitted.
func (r *ReportRepo) FinesBetween(ctx context.Context, from, to time.Time) ([]FineBucket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DATE(returned_at) AS day, COALESCE(SUM(fine_cents),0)
         FROM borrowings
         WHERE returned_at IS NOT NULL AND returned_at >= ? AND returned_at < ?
         GROUP BY day ORDER BY day`,
		from.UTC().Format("2006-01-02 15:04:05"),
		to.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]FineBucket, 0)
	for rows.Next() {
		var b FineBucket
		// parseTime is on, so DATE() arrives as time.Time; format it back
		// to the calendar-day string the JSON contract promises.
		var day time.Time
		if err := rows.Scan(&day, &b.FinesCents); err != nil {
			return nil, err
		}
		b.Day = day.Format("2006-01-02")
		out = append(out, b)
	}
	return out, rows.Err()
}
