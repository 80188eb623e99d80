// Package snapshot holds pure transforms over a tasks snapshot. Nothing here
// touches storage; callers load a snapshot, derive an updated copy with these
// helpers, then hand both to the changelog engine.
package snapshot

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

var (
	// ErrTitleInUse indicates an assignment title is still held by users or
	// scheduled tasks and cannot be deleted.
	ErrTitleInUse = errors.New("assignment title is still in use")
	// ErrTitleExists indicates an assignment title is already present.
	ErrTitleExists = errors.New("assignment title already exists")
	// ErrTitleRequired indicates an empty assignment title.
	ErrTitleRequired = errors.New("assignment title is required")
)

// DefaultShiftDays keeps weekdays aligned when copying a year forward.
const DefaultShiftDays = 364

// Placeholder task values used when seeding a new assignment title.
const (
	PlaceholderTitle  = "Placeholder task for new title"
	PlaceholderBucket = "Admin"
	PlaceholderFY     = 1900
	placeholderNA     = "N/A"
)

// NextKey returns max(#)+1, or 1 for an empty snapshot.
func NextKey(tasks []model.Task) int {
	next := 1
	for _, t := range tasks {
		if t.Key >= next {
			next = t.Key + 1
		}
	}
	return next
}

// AddTask returns a copy of tasks with t appended under a fresh key.
func AddTask(tasks []model.Task, t model.Task) ([]model.Task, model.Task) {
	t = t.Clone()
	t.Key = NextKey(tasks)
	if t.Progress == "" {
		t.Progress = model.ProgressNotStarted
	}
	out := model.CloneTasks(tasks)
	return append(out, t), t
}

// Duplicate appends copies of selected to tasks, moved to fiscalYear with
// dates shifted forward by shiftDays. Copies get sequential keys after the
// current maximum.
func Duplicate(tasks, selected []model.Task, fiscalYear, shiftDays int) []model.Task {
	out := model.CloneTasks(tasks)
	next := NextKey(tasks)
	for _, src := range selected {
		c := src.Clone()
		c.Key = next
		next++
		c.FiscalYear = fiscalYear
		if c.Start != nil {
			s := c.Start.AddDate(0, 0, shiftDays)
			c.Start = &s
		}
		if c.End != nil {
			e := c.End.AddDate(0, 0, shiftDays)
			c.End = &e
		}
		out = append(out, c)
	}
	return out
}

// Titles returns the distinct non-empty assignment titles, sorted.
func Titles(tasks []model.Task) []string {
	return distinct(tasks, func(t model.Task) string { return t.AssignmentTitle })
}

// Buckets returns the distinct non-empty planner buckets, sorted.
func Buckets(tasks []model.Task) []string {
	return distinct(tasks, func(t model.Task) string { return t.Bucket })
}

func distinct(tasks []model.Task, field func(model.Task) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tasks {
		v := field(t)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// AddPlaceholderTitle seeds a new assignment title by appending an
// unscheduled placeholder task that carries it.
func AddPlaceholderTitle(tasks []model.Task, title string) ([]model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if slices.Contains(Titles(tasks), title) {
		return nil, fmt.Errorf("%w: %s", ErrTitleExists, title)
	}
	day := time.Date(PlaceholderFY, 1, 1, 0, 0, 0, 0, time.Local)
	end := day
	out, _ := AddTask(tasks, model.Task{
		Title:           PlaceholderTitle,
		Bucket:          PlaceholderBucket,
		AssignmentTitle: title,
		Semester:        placeholderNA,
		FiscalYear:      PlaceholderFY,
		Audience:        placeholderNA,
		Start:           &day,
		End:             &end,
		Progress:        model.ProgressNotStarted,
	})
	return out, nil
}

// RenameTitle rewrites an assignment title across tasks and users.
func RenameTitle(tasks []model.Task, users []model.User, oldTitle, newTitle string) ([]model.Task, []model.User) {
	outTasks := model.CloneTasks(tasks)
	for i := range outTasks {
		if outTasks[i].AssignmentTitle == oldTitle {
			outTasks[i].AssignmentTitle = newTitle
		}
	}
	outUsers := slices.Clone(users)
	for i := range outUsers {
		if outUsers[i].AssignmentTitle == oldTitle {
			outUsers[i].AssignmentTitle = newTitle
		}
	}
	return outTasks, outUsers
}

// DeleteTitle removes every task carrying title. It refuses while a user
// holds the title or a scheduled (non-placeholder) task uses it.
func DeleteTitle(tasks []model.Task, users []model.User, title string) ([]model.Task, error) {
	for _, u := range users {
		if u.AssignmentTitle == title {
			return nil, fmt.Errorf("%w: assigned to %s", ErrTitleInUse, u.Email)
		}
	}
	for _, t := range tasks {
		if t.AssignmentTitle == title && t.FiscalYear > model.PlaceholderYear {
			return nil, fmt.Errorf("%w: task #%d", ErrTitleInUse, t.Key)
		}
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AssignmentTitle != title {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// RenameBucket rewrites a planner bucket across tasks.
func RenameBucket(tasks []model.Task, oldBucket, newBucket string) []model.Task {
	out := model.CloneTasks(tasks)
	for i := range out {
		if out[i].Bucket == oldBucket {
			out[i].Bucket = newBucket
		}
	}
	return out
}
