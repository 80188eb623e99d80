package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/notify"
)

// taskJSON is the wire form of a task row. Dates are written in the storage
// layout; on the way in a space-separated time of day is also accepted.
type taskJSON struct {
	Key             int    `json:"key"`
	Task            string `json:"task"`
	Bucket          string `json:"bucket"`
	AssignmentTitle string `json:"assignment_title"`
	Semester        string `json:"semester"`
	FiscalYear      int    `json:"fiscal_year"`
	Audience        string `json:"audience"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
	Progress        string `json:"progress"`
}

func toTaskJSON(t model.Task) taskJSON {
	return taskJSON{
		Key:             t.Key,
		Task:            t.Title,
		Bucket:          t.Bucket,
		AssignmentTitle: t.AssignmentTitle,
		Semester:        t.Semester,
		FiscalYear:      t.FiscalYear,
		Audience:        t.Audience,
		Start:           db.FormatDate(t.Start),
		End:             db.FormatDate(t.End),
		Progress:        string(t.Progress),
	}
}

func (j taskJSON) toTask() (model.Task, error) {
	t := model.Task{
		Key:             j.Key,
		Title:           j.Task,
		Bucket:          j.Bucket,
		AssignmentTitle: j.AssignmentTitle,
		Semester:        j.Semester,
		FiscalYear:      j.FiscalYear,
		Audience:        j.Audience,
		Progress:        model.Progress(strings.ToUpper(strings.TrimSpace(j.Progress))),
	}
	var err error
	if t.Start, err = db.ParseDateTime(j.Start); err != nil {
		return t, fmt.Errorf("task #%d: start: %w", j.Key, err)
	}
	if t.End, err = db.ParseDateTime(j.End); err != nil {
		return t, fmt.Errorf("task #%d: end: %w", j.Key, err)
	}
	if t.Progress != "" && !t.Progress.IsValid() {
		return t, fmt.Errorf("task #%d: invalid progress %q", j.Key, j.Progress)
	}
	return t, nil
}

type commentJSON struct {
	ID        int       `json:"id"`
	TaskKey   int       `json:"task_key"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

func toCommentJSON(c model.Comment) commentJSON {
	return commentJSON{
		ID:        c.ID,
		TaskKey:   c.TaskKey,
		Author:    c.AuthorEmail,
		Timestamp: c.Timestamp,
		Text:      c.Text,
	}
}

type notificationJSON struct {
	ID        int       `json:"id"`
	Header    string    `json:"header"`
	Body      string    `json:"body"`
	TaskKey   int       `json:"task_key,omitempty"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

func toNotificationJSON(n model.Notification) notificationJSON {
	key, _ := notify.TaskKeyFromHeader(n.Header())
	return notificationJSON{
		ID:        n.ID,
		Header:    n.Header(),
		Body:      n.Body(),
		TaskKey:   key,
		IsRead:    n.IsRead,
		Timestamp: n.Timestamp,
	}
}

type changelogJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	TaskKey   int       `json:"task_key,omitempty"`
	User      string    `json:"user"`
	Source    string    `json:"source"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
}

func toChangelogJSON(e model.ChangelogEntry) changelogJSON {
	return changelogJSON{
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		TaskKey:   e.TaskKey,
		User:      e.User,
		Source:    e.Source,
		Field:     e.Field,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
	}
}

type presetJSON struct {
	Name      string   `json:"name"`
	Years     []int    `json:"years"`
	Buckets   []string `json:"buckets"`
	CreatedAt string   `json:"created_at,omitempty"`
}

func toPresetJSON(p model.FilterPreset) presetJSON {
	return presetJSON{Name: p.Name, Years: p.Years, Buckets: p.Buckets, CreatedAt: p.CreatedAt}
}

func mapSlice[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
