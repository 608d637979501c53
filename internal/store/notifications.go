package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

// UpsertNotifications upserts notifications in one transaction.
func (s *Store) UpsertNotifications(ctx context.Context, ns []model.Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, timestamp, item_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    user_id   = excluded.user_id,
		    title     = excluded.title,
		    message   = excluded.message,
		    type      = excluded.type,
		    is_read   = excluded.is_read,
		    timestamp = excluded.timestamp,
		    item_id   = excluded.item_id`

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, n := range ns {
			_, err := tx.ExecContext(ctx, q,
				n.ID, n.UserID, n.Title, n.Message, n.Type.String(),
				n.Read, n.Timestamp.UnixMilli(), n.ItemID)
			if err != nil {
				return fmt.Errorf("upserting notification %q: %w", n.ID, err)
			}
		}
		return nil
	}, TableNotifications)
}

// NotificationsForUser returns a user's notifications, newest first.
func (s *Store) NotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT id, user_id, title, message, type, is_read, timestamp, item_id
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		q += ` AND is_read = 0`
	}
	q += ` ORDER BY timestamp DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications for %q: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var typ string
		var ts int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.Read, &ts, &n.ItemID); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		if n.Type, err = model.ParseNotificationType(typ); err != nil {
			return nil, fmt.Errorf("scanning notification %q: %w", n.ID, err)
		}
		n.Timestamp = time.UnixMilli(ts)
		out = append(out, n)
	}
	return out, rows.Err()
}

// SetNotificationRead updates the read flag in place. Unknown IDs are a no-op.
func (s *Store) SetNotificationRead(ctx context.Context, id string, read bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("setting read=%t on notification %q: %w", read, id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify.publish(TableNotifications)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for %q: %w", userID, err)
	}
	return n, nil
}
