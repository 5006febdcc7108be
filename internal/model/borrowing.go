package model

import "time"

// Borrowing statuses stored in borrowings.status.
const (
	BorrowStatusBorrowed = "BORROWED"
	BorrowStatusReturned = "RETURNED"
	BorrowStatusOverdue  = "OVERDUE"
)

// Borrowing records a single checkout of a book copy by a user. A
// borrowing is open while ReturnedAt is null. The fine is computed
// once at return time and is immutable afterwards; for open overdue
// loans handlers expose a live preview without writing it back.
//
// Fields:
//  ID         – primary key identifier.
//  BookID     – book that was checked out.
//  UserID     – borrower.
//  IssuedBy   – librarian (or admin) who issued the copy.
//  BorrowedAt – checkout timestamp.
//  DueAt      – date the copy is due back.
//  ReturnedAt – return timestamp (null while open).
//  FineCents  – fine charged at return, in cents.
//  Status     – BORROWED, RETURNED or OVERDUE.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Borrowing struct {
	ID         uint64     // borrowings.id
	BookID     uint64     // borrowings.book_id
	UserID     uint64     // borrowings.user_id
	IssuedBy   uint64     // borrowings.issued_by
	BorrowedAt time.Time  // borrowings.borrowed_at
	DueAt      time.Time  // borrowings.due_at
	ReturnedAt *time.Time // borrowings.returned_at (nullable)
	FineCents  int64      // borrowings.fine_cents
	Status     string     // borrowings.status
	CreatedAt  time.Time  // borrowings.created_at
	UpdatedAt  time.Time  // borrowings.updated_at
}
