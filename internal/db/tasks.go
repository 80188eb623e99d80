package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baiirun/tracker/internal/model"
)

const selectTasks = `
	SELECT "#", "TASK", "PLANNER BUCKET", "ASSIGNMENT TITLE", "SEMESTER",
	       "Fiscal Year", "AUDIENCE", "START", "END", "PROGRESS"
	FROM tasks ORDER BY rowid`

const insertTask = `
	INSERT INTO tasks ("#", "TASK", "PLANNER BUCKET", "ASSIGNMENT TITLE", "SEMESTER",
	                   "Fiscal Year", "AUDIENCE", "START", "END", "PROGRESS")
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// LoadTasks returns the full tasks snapshot in stored order.
//
// START and END are parsed with ParseDate, so trailing text after the date is
// ignored and unparseable values become nil. A missing PROGRESS defaults to
// NOT STARTED.
func (db *DB) LoadTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := db.QueryContext(ctx, selectTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.Task
	for rows.Next() {
		var (
			t                                   model.Task
			title, bucket, assignment, semester sql.NullString
			audience, start, end, progress      sql.NullString
			fiscalYear                          sql.NullInt64
		)
		if err := rows.Scan(&t.Key, &title, &bucket, &assignment, &semester,
			&fiscalYear, &audience, &start, &end, &progress); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Title = nullString(title)
		t.Bucket = nullString(bucket)
		t.AssignmentTitle = nullString(assignment)
		t.Semester = nullString(semester)
		t.FiscalYear = int(fiscalYear.Int64)
		t.Audience = nullString(audience)
		t.Start = ParseDate(nullString(start))
		t.End = ParseDate(nullString(end))
		t.Progress = model.Progress(nullString(progress))
		if t.Progress == "" {
			t.Progress = model.ProgressNotStarted
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// SaveTasks replaces the tasks table with the given snapshot.
func (db *DB) SaveTasks(ctx context.Context, tasks []model.Task) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTasks(ctx, tx, tasks)
	})
}

// SaveTasksWithLog appends entries to the changelog and replaces the tasks
// table in one transaction. Either both writes land or neither does.
func (db *DB) SaveTasksWithLog(ctx context.Context, tasks []model.Task, entries []model.ChangelogEntry) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertChangelog(ctx, tx, entries); err != nil {
			return err
		}
		return replaceTasks(ctx, tx, tasks)
	})
}

func replaceTasks(ctx context.Context, tx execer, tasks []model.Task) error {
	return replaceTable(ctx, tx, "tasks", insertTask, len(tasks), func(i int) []any {
		t := tasks[i]
		progress := t.Progress
		if progress == "" {
			progress = model.ProgressNotStarted
		}
		return []any{
			t.Key, t.Title, t.Bucket, t.AssignmentTitle, t.Semester,
			t.FiscalYear, t.Audience, FormatDate(t.Start), FormatDate(t.End), string(progress),
		}
	})
}
