// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried in LibraryEvent.Kind. They map one-to-one onto
// notification types written by the consumer.
const (
	KindLoanIssued     = "loan.issued"
	KindLoanReturned   = "loan.returned"
	KindLoanOverdue    = "loan.overdue"
	KindBookAvailable  = "book.available"
	KindRequestDecided = "request.decided"
)

// EventsQueueName is the durable queue all library events flow through.
const EventsQueueName = "library.events"

// LibraryEvent is published whenever the loan, hold or request state of a
// user changes. It carries enough information for downstream consumers to
// write a notification or log line without querying the primary database.
// Fields that do not apply to a given kind are left at their zero value.
type LibraryEvent struct {
	Kind        string `json:"kind"`
	UserID      uint64 `json:"user_id"`
	BookID      uint64 `json:"book_id,omitempty"`
	BookTitle   string `json:"book_title,omitempty"`
	BorrowingID uint64 `json:"borrowing_id,omitempty"`
	RequestID   uint64 `json:"request_id,omitempty"`
	DueAt       string `json:"due_at,omitempty"`
	FineCents   int64  `json:"fine_cents,omitempty"`
	Decision    string `json:"decision,omitempty"` // APPROVED | REJECTED
	OccurredAt  string `json:"occurred_at"`
}
