// Package model defines the typed records persisted by the tracker tables.
package model

import "time"

// Progress is the workflow state of a task.
type Progress string

const (
	ProgressNotStarted Progress = "NOT STARTED"
	ProgressInProgress Progress = "IN PROGRESS"
	ProgressComplete   Progress = "COMPLETE"
)

// IsValid reports whether p is one of the known progress values.
func (p Progress) IsValid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressComplete:
		return true
	}
	return false
}

// PlaceholderYear is the last year treated as "unscheduled". Tasks seeded for
// a new assignment title carry fiscal year 1900 and 1900-01-01 dates.
const PlaceholderYear = 1901

// Column names of the tasks table. They double as the "field changed" labels
// written to the changelog.
const (
	ColumnKey        = "#"
	ColumnTask       = "TASK"
	ColumnBucket     = "PLANNER BUCKET"
	ColumnAssignment = "ASSIGNMENT TITLE"
	ColumnSemester   = "SEMESTER"
	ColumnFiscalYear = "Fiscal Year"
	ColumnAudience   = "AUDIENCE"
	ColumnStart      = "START"
	ColumnEnd        = "END"
	ColumnProgress   = "PROGRESS"
)

// TaskColumns lists every non-key column in table order.
var TaskColumns = []string{
	ColumnTask,
	ColumnBucket,
	ColumnAssignment,
	ColumnSemester,
	ColumnFiscalYear,
	ColumnAudience,
	ColumnStart,
	ColumnEnd,
	ColumnProgress,
}

// Task is one row of the tasks table. Key is stable across edits and is the
// join key for diffing, comments and notifications. Nil Start/End mean the
// value is missing.
type Task struct {
	Key             int
	Title           string
	Bucket          string
	AssignmentTitle string
	Semester        string
	FiscalYear      int
	Audience        string
	Start           *time.Time
	End             *time.Time
	Progress        Progress
}

// IsPlaceholder reports whether the task is an unscheduled placeholder.
func (t Task) IsPlaceholder() bool {
	if t.FiscalYear != 0 && t.FiscalYear <= PlaceholderYear {
		return true
	}
	if t.Start != nil && t.Start.Year() <= PlaceholderYear {
		return true
	}
	return false
}

// HasDates reports whether both start and end are present.
func (t Task) HasDates() bool {
	return t.Start != nil && t.End != nil
}

// Clone returns a deep copy so date pointers are not shared between snapshots.
func (t Task) Clone() Task {
	c := t
	if t.Start != nil {
		s := *t.Start
		c.Start = &s
	}
	if t.End != nil {
		e := *t.End
		c.End = &e
	}
	return c
}

// CloneTasks deep-copies a snapshot.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
