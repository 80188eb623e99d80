package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

// taskIDNone is written to "Task ID" for entries not bound to a task.
const taskIDNone = "N/A"

const insertChangelogEntry = `
	INSERT INTO changelog ("Timestamp", "Action", "Task ID", "User", "Source",
	                       "Field Changed", "Old Value", "New Value")
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// ChangelogFilter narrows a changelog query. Zero values match everything.
// From and To are inclusive calendar days.
type ChangelogFilter struct {
	Action model.Action
	Source string
	From   *time.Time
	To     *time.Time
}

// LoadChangelog returns every changelog entry in insertion order.
func (db *DB) LoadChangelog(ctx context.Context) ([]model.ChangelogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT "Timestamp", "Action", "Task ID", "User", "Source",
		       "Field Changed", "Old Value", "New Value"
		FROM changelog ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query changelog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ChangelogEntry
	for rows.Next() {
		var (
			e                    model.ChangelogEntry
			ts, action           string
			taskID, user, source sql.NullString
			field, oldV, newV    sql.NullString
		)
		if err := rows.Scan(&ts, &action, &taskID, &user, &source, &field, &oldV, &newV); err != nil {
			return nil, fmt.Errorf("failed to scan changelog entry: %w", err)
		}
		e.Timestamp = parseTimestamp(ts)
		e.Action = model.Action(action)
		e.TaskKey, _ = strconv.Atoi(strings.TrimSpace(nullString(taskID)))
		e.User = nullString(user)
		e.Source = nullString(source)
		e.Field = nullString(field)
		e.OldValue = nullString(oldV)
		e.NewValue = nullString(newV)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendChangelog appends entries. Existing rows are never modified.
func (db *DB) AppendChangelog(ctx context.Context, entries []model.ChangelogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertChangelog(ctx, tx, entries)
	})
}

// QueryChangelog returns entries matching f, newest first.
func (db *DB) QueryChangelog(ctx context.Context, f ChangelogFilter) ([]model.ChangelogEntry, error) {
	all, err := db.LoadChangelog(ctx)
	if err != nil {
		return nil, err
	}

	var to time.Time
	if f.To != nil {
		y, m, d := f.To.Date()
		to = time.Date(y, m, d+1, 0, 0, 0, 0, f.To.Location())
	}
	var from time.Time
	if f.From != nil {
		y, m, d := f.From.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, f.From.Location())
	}

	matched := make([]model.ChangelogEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Source != "" && e.Source != f.Source {
			continue
		}
		if f.From != nil && e.Timestamp.Before(from) {
			continue
		}
		if f.To != nil && !e.Timestamp.Before(to) {
			continue
		}
		matched = append(matched, e)
	}
	return matched, nil
}

func insertChangelog(ctx context.Context, tx execer, entries []model.ChangelogEntry) error {
	for _, e := range entries {
		taskID := taskIDNone
		if e.TaskKey != 0 {
			taskID = strconv.Itoa(e.TaskKey)
		}
		if _, err := tx.ExecContext(ctx, insertChangelogEntry,
			formatTimestamp(e.Timestamp), string(e.Action), taskID, e.User, e.Source,
			e.Field, e.OldValue, e.NewValue,
		); err != nil {
			return fmt.Errorf("failed to append changelog entry: %w", err)
		}
	}
	return nil
}
