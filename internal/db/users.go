package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/baiirun/tracker/internal/model"
)

const selectUsers = `
	SELECT email, password, first_name, last_name, assignment_title, role, status
	FROM users`

// LoadUsers returns every user ordered by email.
func (db *DB) LoadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, selectUsers+` ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns the user with the given email (case-insensitive).
func (db *DB) GetUser(ctx context.Context, email string) (model.User, error) {
	row := db.QueryRowContext(ctx, selectUsers+` WHERE lower(email) = lower(?)`, strings.TrimSpace(email))
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, err
}

// SaveUsers replaces the users table.
func (db *DB) SaveUsers(ctx context.Context, users []model.User) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTable(ctx, tx, "users", `
			INSERT INTO users (email, password, first_name, last_name, assignment_title, role, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, len(users), func(i int) []any {
			u := users[i]
			role := u.Role
			if role == "" {
				role = model.RoleViewer
			}
			status := u.Status
			if status == "" {
				status = model.UserActive
			}
			return []any{u.Email, u.PasswordHash, u.FirstName, u.LastName, u.AssignmentTitle, string(role), string(status)}
		})
	})
}

func scanUser(scan func(dest ...any) error) (model.User, error) {
	var (
		u                      model.User
		first, last, title     sql.NullString
		password, role, status sql.NullString
	)
	if err := scan(&u.Email, &password, &first, &last, &title, &role, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	u.PasswordHash = nullString(password)
	u.FirstName = nullString(first)
	u.LastName = nullString(last)
	u.AssignmentTitle = nullString(title)
	u.Role = model.Role(nullString(role))
	u.Status = model.UserStatus(nullString(status))
	return u, nil
}

// LoadSettings returns every notification preference.
func (db *DB) LoadSettings(ctx context.Context) ([]model.Setting, error) {
	rows, err := db.QueryContext(ctx, `SELECT email, frequency FROM settings ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var settings []model.Setting
	for rows.Next() {
		var s model.Setting
		var freq string
		if err := rows.Scan(&s.Email, &freq); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		s.Frequency = model.Frequency(freq)
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// SaveSettings replaces the settings table.
func (db *DB) SaveSettings(ctx context.Context, settings []model.Setting) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTable(ctx, tx, "settings", `
			INSERT INTO settings (email, frequency) VALUES (?, ?)`, len(settings), func(i int) []any {
			freq := settings[i].Frequency
			if freq == "" {
				freq = model.FrequencyNever
			}
			return []any{settings[i].Email, string(freq)}
		})
	})
}
