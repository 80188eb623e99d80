// Package db provides the SQLite table store for the project tracker.
//
// The database is stored at ~/.tracker/tracker.db by default.
// Use Open() to connect and Init() to create the core schema. Supporting
// tables (bucket icons, comments, notifications, filter presets) are created
// on first use and the creation is recorded in the changelog.
//
// Every table is read and written whole: Load* returns all rows, Save*
// replaces the table contents in a single transaction. A non-nil error from
// any operation means the operation did not happen.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates a requested row does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	"#" INTEGER NOT NULL,
	"TASK" TEXT,
	"PLANNER BUCKET" TEXT,
	"ASSIGNMENT TITLE" TEXT,
	"SEMESTER" TEXT,
	"Fiscal Year" INTEGER,
	"AUDIENCE" TEXT,
	"START" TEXT,
	"END" TEXT,
	"PROGRESS" TEXT
);

CREATE TABLE IF NOT EXISTS changelog (
	"Timestamp" TEXT NOT NULL,
	"Action" TEXT NOT NULL,
	"Task ID" TEXT,
	"User" TEXT,
	"Source" TEXT,
	"Field Changed" TEXT,
	"Old Value" TEXT,
	"New Value" TEXT
);

CREATE TABLE IF NOT EXISTS users (
	email TEXT PRIMARY KEY,
	password TEXT NOT NULL DEFAULT '',
	first_name TEXT,
	last_name TEXT,
	assignment_title TEXT,
	role TEXT NOT NULL DEFAULT 'viewer',
	status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS settings (
	email TEXT PRIMARY KEY,
	frequency TEXT NOT NULL DEFAULT 'Never'
);

CREATE INDEX IF NOT EXISTS idx_tasks_key ON tasks("#");
CREATE INDEX IF NOT EXISTS idx_changelog_timestamp ON changelog("Timestamp");
`

// Supporting table names. They are created lazily by ensureTable.
const (
	TableBucketIcons   = "bucket_icons"
	TableComments      = "comments"
	TableNotifications = "notifications"
	TableFilterPresets = "filter_presets"
)

var supportingSchemas = map[string]string{
	TableBucketIcons: `
CREATE TABLE IF NOT EXISTS bucket_icons (
	bucket_name TEXT PRIMARY KEY,
	icon TEXT NOT NULL DEFAULT ''
)`,
	TableComments: `
CREATE TABLE IF NOT EXISTS comments (
	comment_id INTEGER NOT NULL,
	task_id INTEGER NOT NULL,
	user_email TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	comment_text TEXT NOT NULL
)`,
	TableNotifications: `
CREATE TABLE IF NOT EXISTS notifications (
	notification_id INTEGER NOT NULL,
	user_email TEXT NOT NULL,
	message TEXT NOT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	timestamp TEXT NOT NULL
)`,
	TableFilterPresets: `
CREATE TABLE IF NOT EXISTS filter_presets (
	preset_id INTEGER NOT NULL,
	user_email TEXT NOT NULL,
	preset_name TEXT NOT NULL,
	years TEXT NOT NULL DEFAULT '[]',
	buckets TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	UNIQUE (user_email, preset_name)
)`,
}

// timestampLayout is how timestamps are written to text columns.
const timestampLayout = "2006-01-02 15:04:05"

// Table is the result of loading a whole table. AutoCreated is set when the
// table did not exist and was created by this call.
type Table[T any] struct {
	Rows        []T
	AutoCreated bool
}

// DB wraps a SQL database connection with tracker table operations.
type DB struct {
	*sql.DB
	now func() time.Time
}

// DefaultPath returns the default database path (~/.tracker/tracker.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tracker", "tracker.db"), nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// Single connection: callers must not query through db while a tx is open.
	sqlDB.SetMaxOpenConns(1)

	return &DB{DB: sqlDB, now: time.Now}, nil
}

// Init creates the core schema.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SetClock overrides the clock used for auto-create changelog entries.
func (db *DB) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	db.now = now
}

// TableExists reports whether a table with the given name exists.
func (db *DB) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return true, nil
}

// ensureTable creates a supporting table when it is missing and records the
// creation in the changelog. A failure to write that changelog entry is logged
// and does not undo the creation.
func (db *DB) ensureTable(ctx context.Context, name string) (bool, error) {
	ddl, ok := supportingSchemas[name]
	if !ok {
		return false, fmt.Errorf("unknown supporting table: %s", name)
	}
	exists, err := db.TableExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		log.Printf("auto-create table %s: %v", name, err)
		return false, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	entry := model.ChangelogEntry{
		Timestamp: db.now(),
		Action:    model.ActionAdd,
		User:      model.ActorSystem,
		Source:    model.SourceAutoCreate,
		Field:     "TABLE",
		NewValue:  name,
	}
	if err := insertChangelog(ctx, db.DB, []model.ChangelogEntry{entry}); err != nil {
		log.Printf("auto-create table %s: record changelog: %v", name, err)
	}
	return true, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// replaceTable deletes every row of table and inserts n rows built by args.
// It runs inside the provided transaction.
func replaceTable(ctx context.Context, tx execer, table, insert string, n int, args func(i int) []any) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx, insert, args(i)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction and commits on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{timestampLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
