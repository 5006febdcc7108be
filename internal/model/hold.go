package model

import "time"

// Hold statuses stored in holds.status.
const (
	HoldStatusActive    = "ACTIVE"
	HoldStatusFulfilled = "FULFILLED"
	HoldStatusExpired   = "EXPIRED"
	HoldStatusCancelled = "CANCELLED"
)

// Hold is a reservation placed on a book that currently has no
// available copies. A hold expires automatically at ExpiresAt;
// expired rows are lazily transitioned to EXPIRED before
// availability checks. Issuing the book to the holder fulfils the
// hold. Holds never block direct borrowing.
//
// Fields:
//  ID        – primary key identifier.
//  BookID    – book being held.
//  UserID    – user waiting for a copy.
//  ExpiresAt – when the hold lapses.
//  Status    – ACTIVE, FULFILLED, EXPIRED or CANCELLED.
//  CreatedAt – when the hold was placed.
type Hold struct {
	ID        uint64    // holds.id
	BookID    uint64    // holds.book_id
	UserID    uint64    // holds.user_id
	ExpiresAt time.Time // holds.expires_at
	Status    string    // holds.status
	CreatedAt time.Time // holds.created_at
}
