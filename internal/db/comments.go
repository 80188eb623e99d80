package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baiirun/tracker/internal/model"
)

// LoadComments returns every comment, creating the table when missing.
func (db *DB) LoadComments(ctx context.Context) (Table[model.Comment], error) {
	created, err := db.ensureTable(ctx, TableComments)
	if err != nil {
		return Table[model.Comment]{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT comment_id, task_id, user_email, timestamp, comment_text
		FROM comments ORDER BY rowid`)
	if err != nil {
		return Table[model.Comment]{}, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := Table[model.Comment]{AutoCreated: created}
	for rows.Next() {
		var c model.Comment
		var ts string
		if err := rows.Scan(&c.ID, &c.TaskKey, &c.AuthorEmail, &ts, &c.Text); err != nil {
			return Table[model.Comment]{}, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Timestamp = parseTimestamp(ts)
		result.Rows = append(result.Rows, c)
	}
	if err := rows.Err(); err != nil {
		return Table[model.Comment]{}, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return result, nil
}

// SaveComments replaces the comments table.
func (db *DB) SaveComments(ctx context.Context, comments []model.Comment) error {
	if _, err := db.ensureTable(ctx, TableComments); err != nil {
		return err
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTable(ctx, tx, TableComments, `
			INSERT INTO comments (comment_id, task_id, user_email, timestamp, comment_text)
			VALUES (?, ?, ?, ?, ?)`, len(comments), func(i int) []any {
			c := comments[i]
			return []any{c.ID, c.TaskKey, c.AuthorEmail, formatTimestamp(c.Timestamp), c.Text}
		})
	})
}
