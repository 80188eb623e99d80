package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

// LoadPresets returns every filter preset, creating the table when missing.
func (db *DB) LoadPresets(ctx context.Context) (Table[model.FilterPreset], error) {
	created, err := db.ensureTable(ctx, TableFilterPresets)
	if err != nil {
		return Table[model.FilterPreset]{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT preset_id, user_email, preset_name, years, buckets, created_at
		FROM filter_presets ORDER BY rowid`)
	if err != nil {
		return Table[model.FilterPreset]{}, fmt.Errorf("failed to query filter presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := Table[model.FilterPreset]{AutoCreated: created}
	for rows.Next() {
		var p model.FilterPreset
		var yearsJSON, bucketsJSON string
		if err := rows.Scan(&p.ID, &p.UserEmail, &p.Name, &yearsJSON, &bucketsJSON, &p.CreatedAt); err != nil {
			return Table[model.FilterPreset]{}, fmt.Errorf("failed to scan filter preset: %w", err)
		}
		if err := unmarshalList(yearsJSON, &p.Years); err != nil {
			return Table[model.FilterPreset]{}, fmt.Errorf("preset %q years: %w", p.Name, err)
		}
		if err := unmarshalList(bucketsJSON, &p.Buckets); err != nil {
			return Table[model.FilterPreset]{}, fmt.Errorf("preset %q buckets: %w", p.Name, err)
		}
		result.Rows = append(result.Rows, p)
	}
	if err := rows.Err(); err != nil {
		return Table[model.FilterPreset]{}, fmt.Errorf("failed to iterate filter presets: %w", err)
	}
	return result, nil
}

// SavePresets replaces the filter presets table. Every created_at is
// normalized to an ISO-8601 string before it is written.
func (db *DB) SavePresets(ctx context.Context, presets []model.FilterPreset) error {
	if _, err := db.ensureTable(ctx, TableFilterPresets); err != nil {
		return err
	}

	type row struct {
		preset  model.FilterPreset
		years   string
		buckets string
	}
	prepared := make([]row, 0, len(presets))
	for _, p := range presets {
		years, err := marshalList(p.Years)
		if err != nil {
			return fmt.Errorf("preset %q years: %w", p.Name, err)
		}
		buckets, err := marshalList(p.Buckets)
		if err != nil {
			return fmt.Errorf("preset %q buckets: %w", p.Name, err)
		}
		p.CreatedAt = NormalizeCreatedAt(p.CreatedAt, db.now())
		prepared = append(prepared, row{preset: p, years: years, buckets: buckets})
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceTable(ctx, tx, TableFilterPresets, `
			INSERT INTO filter_presets (preset_id, user_email, preset_name, years, buckets, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`, len(prepared), func(i int) []any {
			r := prepared[i]
			return []any{r.preset.ID, r.preset.UserEmail, r.preset.Name, r.years, r.buckets, r.preset.CreatedAt}
		})
	})
}

// SavePreset upserts the preset keyed by (user, name).
func (db *DB) SavePreset(ctx context.Context, user, name string, years []int, buckets []string) error {
	user = strings.TrimSpace(user)
	name = strings.TrimSpace(name)
	if user == "" || name == "" {
		return fmt.Errorf("preset user and name are required")
	}
	table, err := db.LoadPresets(ctx)
	if err != nil {
		return err
	}

	presets := table.Rows
	found := false
	maxID := 0
	for i := range presets {
		maxID = max(maxID, presets[i].ID)
		if strings.EqualFold(presets[i].UserEmail, user) && presets[i].Name == name {
			presets[i].Years = years
			presets[i].Buckets = buckets
			found = true
		}
	}
	if !found {
		presets = append(presets, model.FilterPreset{
			ID:        maxID + 1,
			UserEmail: user,
			Name:      name,
			Years:     years,
			Buckets:   buckets,
		})
	}
	return db.SavePresets(ctx, presets)
}

// ListPresets returns the presets saved by user.
func (db *DB) ListPresets(ctx context.Context, user string) ([]model.FilterPreset, error) {
	table, err := db.LoadPresets(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.FilterPreset
	for _, p := range table.Rows {
		if strings.EqualFold(p.UserEmail, strings.TrimSpace(user)) {
			out = append(out, p)
		}
	}
	return out, nil
}

// DeletePreset removes the preset keyed by (user, name).
func (db *DB) DeletePreset(ctx context.Context, user, name string) error {
	table, err := db.LoadPresets(ctx)
	if err != nil {
		return err
	}
	kept := make([]model.FilterPreset, 0, len(table.Rows))
	removed := false
	for _, p := range table.Rows {
		if strings.EqualFold(p.UserEmail, strings.TrimSpace(user)) && p.Name == strings.TrimSpace(name) {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return fmt.Errorf("preset %q for %s: %w", name, user, ErrNotFound)
	}
	return db.SavePresets(ctx, kept)
}

// NormalizeCreatedAt renders a preset timestamp as RFC 3339 text. Empty input
// takes now; unparseable input is kept verbatim.
func NormalizeCreatedAt(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format(time.RFC3339)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(time.RFC3339)
	}
	if t := parseTimestamp(raw); !t.IsZero() {
		return t.Format(time.RFC3339)
	}
	return raw
}

func marshalList[T any](list []T) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalList[T any](raw string, dest *[]T) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
