// Package admin implements the snapshot-editing flows behind the tracker's
// admin and bulk-edit screens. Every task change goes through the changelog
// engine so it is diffed and logged like any other save.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

// Source labels recorded in the changelog.
const (
	SourceAddTask     = "Add Task"
	SourceDuplicate   = "Bulk Edit - Duplicate"
	SourceAddTitle    = "Admin - Add Title"
	SourceRenameTitle = "Admin - Rename Title"
	SourceDeleteTitle = "Admin - Delete Title"
	SourceBuckets     = "Admin - Planner Buckets"
	FieldBucketName   = "Planner Bucket Name"
	FieldBucketIcon   = "Planner Bucket Icon"
)

// ErrBucketRequired indicates an empty bucket name.
var ErrBucketRequired = errors.New("planner bucket is required")

// Store is the persistence boundary for admin flows.
type Store interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	LoadUsers(ctx context.Context) ([]model.User, error)
	SaveUsers(ctx context.Context, users []model.User) error
	LoadBucketIcons(ctx context.Context) (db.Table[model.BucketIcon], error)
	SaveBucketIcons(ctx context.Context, icons []model.BucketIcon) error
	AppendChangelog(ctx context.Context, entries []model.ChangelogEntry) error
}

// Saver diffs and persists a tasks snapshot.
type Saver interface {
	SaveAndLog(ctx context.Context, original, updated []model.Task, actor, source string) error
}

// Service runs admin flows.
type Service struct {
	store Store
	saver Saver
	clock func() time.Time
}

// NewService constructs an admin service.
func NewService(store Store, saver Saver, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, saver: saver, clock: clock}
}

// edit loads the snapshot, applies fn and saves the result through the engine.
func (s *Service) edit(ctx context.Context, actor, source string, fn func(tasks []model.Task) ([]model.Task, error)) error {
	original, err := s.store.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	updated, err := fn(original)
	if err != nil {
		return err
	}
	return s.saver.SaveAndLog(ctx, original, updated, actor, source)
}

// AddTask appends t under the next free key and returns the stored task.
func (s *Service) AddTask(ctx context.Context, actor string, t model.Task) (model.Task, error) {
	var added model.Task
	err := s.edit(ctx, actor, SourceAddTask, func(tasks []model.Task) ([]model.Task, error) {
		var updated []model.Task
		updated, added = snapshot.AddTask(tasks, t)
		return updated, nil
	})
	return added, err
}

// Duplicate copies the tasks matching c into fiscalYear, shifting dates by
// shiftDays. It returns how many tasks were copied.
func (s *Service) Duplicate(ctx context.Context, actor string, c snapshot.Criteria, fiscalYear, shiftDays int) (int, error) {
	n := 0
	err := s.edit(ctx, actor, SourceDuplicate, func(tasks []model.Task) ([]model.Task, error) {
		selected := snapshot.Filter(tasks, c)
		n = len(selected)
		return snapshot.Duplicate(tasks, selected, fiscalYear, shiftDays), nil
	})
	return n, err
}

// AddTitle seeds a new assignment title with a placeholder task.
func (s *Service) AddTitle(ctx context.Context, actor, title string) error {
	return s.edit(ctx, actor, SourceAddTitle, func(tasks []model.Task) ([]model.Task, error) {
		return snapshot.AddPlaceholderTitle(tasks, title)
	})
}

// RenameTitle renames an assignment title on tasks and users.
func (s *Service) RenameTitle(ctx context.Context, actor, oldTitle, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return snapshot.ErrTitleRequired
	}
	if newTitle == oldTitle {
		return nil
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	var renamedUsers []model.User
	err = s.edit(ctx, actor, SourceRenameTitle, func(tasks []model.Task) ([]model.Task, error) {
		var updated []model.Task
		updated, renamedUsers = snapshot.RenameTitle(tasks, users, oldTitle, newTitle)
		return updated, nil
	})
	if err != nil {
		return err
	}
	if err := s.store.SaveUsers(ctx, renamedUsers); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

// DeleteTitle removes a title's placeholder tasks. It fails with
// snapshot.ErrTitleInUse while users or scheduled tasks still carry it.
func (s *Service) DeleteTitle(ctx context.Context, actor, title string) error {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	return s.edit(ctx, actor, SourceDeleteTitle, func(tasks []model.Task) ([]model.Task, error) {
		return snapshot.DeleteTitle(tasks, users, title)
	})
}

// RenameBucket renames a planner bucket on every task and on its icon row,
// logging the rename itself as an admin entry.
func (s *Service) RenameBucket(ctx context.Context, actor, oldBucket, newBucket string) error {
	newBucket = strings.TrimSpace(newBucket)
	if newBucket == "" {
		return ErrBucketRequired
	}
	if newBucket == oldBucket {
		return nil
	}
	icons, err := s.store.LoadBucketIcons(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bucket icons: %w", err)
	}

	err = s.edit(ctx, actor, SourceBuckets, func(tasks []model.Task) ([]model.Task, error) {
		return snapshot.RenameBucket(tasks, oldBucket, newBucket), nil
	})
	if err != nil {
		return err
	}

	rows := slices.Clone(icons.Rows)
	if i := slices.IndexFunc(rows, func(ic model.BucketIcon) bool { return ic.Bucket == oldBucket }); i >= 0 {
		rows[i].Bucket = newBucket
	} else {
		rows = append(rows, model.BucketIcon{Bucket: newBucket, Icon: model.DefaultBucketIcon})
	}
	if err := s.store.SaveBucketIcons(ctx, rows); err != nil {
		return fmt.Errorf("failed to save bucket icons: %w", err)
	}
	return s.store.AppendChangelog(ctx, []model.ChangelogEntry{
		s.adminEntry(actor, FieldBucketName, oldBucket, newBucket),
	})
}

// SetBucketIcon sets the icon for a bucket, adding the row when missing.
func (s *Service) SetBucketIcon(ctx context.Context, actor, bucket, icon string) error {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return ErrBucketRequired
	}
	icons, err := s.store.LoadBucketIcons(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bucket icons: %w", err)
	}
	rows := slices.Clone(icons.Rows)
	oldIcon := ""
	if i := slices.IndexFunc(rows, func(ic model.BucketIcon) bool { return ic.Bucket == bucket }); i >= 0 {
		oldIcon = rows[i].Icon
		if oldIcon == icon {
			return nil
		}
		rows[i].Icon = icon
	} else {
		rows = append(rows, model.BucketIcon{Bucket: bucket, Icon: icon})
	}
	if err := s.store.SaveBucketIcons(ctx, rows); err != nil {
		return fmt.Errorf("failed to save bucket icons: %w", err)
	}
	return s.store.AppendChangelog(ctx, []model.ChangelogEntry{
		s.adminEntry(actor, FieldBucketIcon, bucket+": "+oldIcon, bucket+": "+icon),
	})
}

func (s *Service) adminEntry(actor, field, oldV, newV string) model.ChangelogEntry {
	return model.ChangelogEntry{
		Timestamp: s.clock(),
		Action:    model.ActionEdit,
		User:      actor,
		Source:    SourceBuckets,
		Field:     field,
		OldValue:  oldV,
		NewValue:  newV,
	}
}
