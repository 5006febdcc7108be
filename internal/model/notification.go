package model

import "time"

// Notification types stored in notifications.type. They mirror the
// event kinds published to the message broker.
const (
	NotifyLoanIssued     = "LOAN_ISSUED"
	NotifyLoanReturned   = "LOAN_RETURNED"
	NotifyLoanOverdue    = "LOAN_OVERDUE"
	NotifyBookAvailable  = "BOOK_AVAILABLE"
	NotifyRequestDecided = "REQUEST_DECIDED"
)

// Notification is a per-user message created by the event consumer
// when loan, hold or request events arrive from the broker.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	Message   string    // notifications.message
	Type      string    // notifications.type
	IsRead    bool      // notifications.is_read
	CreatedAt time.Time // notifications.created_at
}
