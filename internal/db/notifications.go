package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baiirun/tracker/internal/model"
)

// LoadNotifications returns every notification, creating the table when missing.
func (db *DB) LoadNotifications(ctx context.Context) (Table[model.Notification], error) {
	created, err := db.ensureTable(ctx, TableNotifications)
	if err != nil {
		return Table[model.Notification]{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT notification_id, user_email, message, is_read, timestamp
		FROM notifications ORDER BY rowid`)
	if err != nil {
		return Table[model.Notification]{}, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := Table[model.Notification]{AutoCreated: created}
	for rows.Next() {
		var n model.Notification
		var ts string
		if err := rows.Scan(&n.ID, &n.RecipientEmail, &n.Message, &n.IsRead, &ts); err != nil {
			return Table[model.Notification]{}, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Timestamp = parseTimestamp(ts)
		result.Rows = append(result.Rows, n)
	}
	if err := rows.Err(); err != nil {
		return Table[model.Notification]{}, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return result, nil
}

// SaveNotifications replaces the notifications table.
func (db *DB) SaveNotifications(ctx context.Context, notifications []model.Notification) error {
	if _, err := db.ensureTable(ctx, TableNotifications); err != nil {
		return err
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTable(ctx, tx, TableNotifications, `
			INSERT INTO notifications (notification_id, user_email, message, is_read, timestamp)
			VALUES (?, ?, ?, ?, ?)`, len(notifications), func(i int) []any {
			n := notifications[i]
			return []any{n.ID, n.RecipientEmail, n.Message, n.IsRead, formatTimestamp(n.Timestamp)}
		})
	})
}
