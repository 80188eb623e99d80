package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/baiirun/tracker/internal/model"
)

// LoadBucketIcons returns every bucket icon. When the table is created by this
// call it is seeded with the default icon for each bucket found in tasks.
func (db *DB) LoadBucketIcons(ctx context.Context) (Table[model.BucketIcon], error) {
	created, err := db.ensureTable(ctx, TableBucketIcons)
	if err != nil {
		return Table[model.BucketIcon]{}, err
	}
	if created {
		if err := db.seedBucketIcons(ctx); err != nil {
			return Table[model.BucketIcon]{}, err
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT bucket_name, icon FROM bucket_icons ORDER BY bucket_name`)
	if err != nil {
		return Table[model.BucketIcon]{}, fmt.Errorf("failed to query bucket icons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := Table[model.BucketIcon]{AutoCreated: created}
	for rows.Next() {
		var icon model.BucketIcon
		if err := rows.Scan(&icon.Bucket, &icon.Icon); err != nil {
			return Table[model.BucketIcon]{}, fmt.Errorf("failed to scan bucket icon: %w", err)
		}
		result.Rows = append(result.Rows, icon)
	}
	if err := rows.Err(); err != nil {
		return Table[model.BucketIcon]{}, fmt.Errorf("failed to iterate bucket icons: %w", err)
	}
	return result, nil
}

// SaveBucketIcons replaces the bucket icons table.
func (db *DB) SaveBucketIcons(ctx context.Context, icons []model.BucketIcon) error {
	if _, err := db.ensureTable(ctx, TableBucketIcons); err != nil {
		return err
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceBucketIcons(ctx, tx, icons)
	})
}

func (db *DB) seedBucketIcons(ctx context.Context) error {
	tasks, err := db.LoadTasks(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	var buckets []string
	for _, t := range tasks {
		if t.Bucket == "" || seen[t.Bucket] {
			continue
		}
		seen[t.Bucket] = true
		buckets = append(buckets, t.Bucket)
	}
	sort.Strings(buckets)

	icons := make([]model.BucketIcon, 0, len(buckets))
	for _, b := range buckets {
		icons = append(icons, model.BucketIcon{Bucket: b, Icon: model.DefaultBucketIcon})
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return replaceBucketIcons(ctx, tx, icons)
	})
}

func replaceBucketIcons(ctx context.Context, tx execer, icons []model.BucketIcon) error {
	return replaceTable(ctx, tx, TableBucketIcons, `
		INSERT INTO bucket_icons (bucket_name, icon) VALUES (?, ?)`, len(icons), func(i int) []any {
		return []any{icons[i].Bucket, icons[i].Icon}
	})
}
