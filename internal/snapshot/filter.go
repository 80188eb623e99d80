package snapshot

import (
	"slices"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

// Criteria selects tasks by bucket and fiscal year. Empty lists match all.
type Criteria struct {
	Buckets []string
	Years   []int
}

// FromPreset builds criteria from a saved filter preset.
func FromPreset(p model.FilterPreset) Criteria {
	return Criteria{Buckets: p.Buckets, Years: p.Years}
}

// Matches reports whether t satisfies c.
func (c Criteria) Matches(t model.Task) bool {
	if len(c.Buckets) > 0 && !slices.Contains(c.Buckets, t.Bucket) {
		return false
	}
	if len(c.Years) > 0 && !slices.Contains(c.Years, t.FiscalYear) {
		return false
	}
	return true
}

// Filter returns the tasks matching c, in snapshot order.
func Filter(tasks []model.Task, c Criteria) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if c.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Dated returns the tasks with both a start and an end, the ones a calendar
// can show. Placeholders carry 1900 dates and are kept.
func Dated(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.HasDates() {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the task with key, if present. With duplicate keys the last
// row wins.
func Find(tasks []model.Task, key int) (model.Task, bool) {
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].Key == key {
			return tasks[i], true
		}
	}
	return model.Task{}, false
}

// Overdue returns scheduled tasks that ended before today and are not
// complete.
func Overdue(tasks []model.Task, today time.Time) []model.Task {
	day := startOfDay(today)
	var out []model.Task
	for _, t := range tasks {
		if t.End == nil || t.End.Year() <= model.PlaceholderYear {
			continue
		}
		if t.Progress != model.ProgressComplete && t.End.Before(day) {
			out = append(out, t)
		}
	}
	return out
}

// StartingWithin returns tasks assigned to title whose start falls in
// [today, today+days].
func StartingWithin(tasks []model.Task, title string, today time.Time, days int) []model.Task {
	from := startOfDay(today)
	to := from.AddDate(0, 0, days+1)
	var out []model.Task
	for _, t := range tasks {
		if t.AssignmentTitle != title || t.Start == nil {
			continue
		}
		if !t.Start.Before(from) && t.Start.Before(to) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Task) int { return a.Start.Compare(*b.Start) })
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
