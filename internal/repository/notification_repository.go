package repository

import (
	"context"
	"database/sql"

	"github.com/openshelf/library-api/internal/model"
)

// NotificationRepo provides data access to the notifications table. Rows
// are written by the broker consumer and read/acknowledged by users.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts an unread notification for a user.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, message, typ string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, type) VALUES (?,?,?)",
		userID, message, typ)
	return err
}

// ListByUser returns the user's notifications, newest first. When
// unreadOnly is set, read rows are filtered out.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, unreadOnly bool) ([]model.Notification, error) {
	q := "SELECT id, user_id, message, type, is_read, created_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one of the user's notifications as read. ErrNotFound
// covers both a missing row and someone else's notification so the
// endpoint does not leak existence.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var isRead bool
		err := r.db.QueryRowContext(ctx,
			"SELECT is_read FROM notifications WHERE id=? AND user_id=? LIMIT 1",
			id, userID).Scan(&isRead)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		// already read: treat as success, the endpoint is idempotent
	}
	return nil
}

// MarkAllRead marks all of the user's notifications read and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id=? AND is_read = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
