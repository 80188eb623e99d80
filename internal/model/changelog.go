package model

import "time"

// Action is the kind of change recorded in the changelog.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionDelete Action = "DELETE"
	ActionEdit   Action = "EDIT"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdd, ActionDelete, ActionEdit:
		return true
	}
	return false
}

const (
	// FieldEntireTask marks ADD and DELETE entries that summarize a whole row.
	FieldEntireTask = "ENTIRE TASK"
	// SourceAutoCreate labels entries written when a supporting table is created on demand.
	SourceAutoCreate = "Auto-Create"
	// ActorSystem is used when no user initiated the change.
	ActorSystem = "system"
)

// ChangelogEntry is an immutable audit record. TaskKey is zero for entries
// not bound to a task (table auto-creation, bucket icon edits).
type ChangelogEntry struct {
	Timestamp time.Time
	Action    Action
	TaskKey   int
	User      string
	Source    string
	Field     string
	OldValue  string
	NewValue  string
}
