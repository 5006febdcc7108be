package model

import "time"

// Book request statuses stored in book_requests.status.
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// BookRequest is a student's ask for the library to acquire a title
// that is not in the catalog. Librarians approve or reject pending
// requests; a decision is final.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – requesting user.
//  Title     – requested title.
//  Author    – requested author (may be empty).
//  Note      – optional free-form note from the requester.
//  Status    – PENDING, APPROVED or REJECTED.
//  DecidedBy – librarian who decided (null while pending).
//  DecidedAt – decision timestamp (null while pending).
//  CreatedAt – creation timestamp.
type BookRequest struct {
	ID        uint64     // book_requests.id
	UserID    uint64     // book_requests.user_id
	Title     string     // book_requests.title
	Author    string     // book_requests.author
	Note      string     // book_requests.note
	Status    string     // book_requests.status
	DecidedBy *uint64    // book_requests.decided_by (nullable)
	DecidedAt *time.Time // book_requests.decided_at (nullable)
	CreatedAt time.Time  // book_requests.created_at
}
