// Package changelog computes field-level audit entries between two tasks
// snapshots and persists them together with the updated snapshot.
package changelog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

// ErrMissingKey indicates a task without a usable # key.
var ErrMissingKey = errors.New("task key is required")

// Layouts for dates in log values. The time of day is shown only when the
// value is not midnight.
const (
	valueDateLayout     = "2006-01-02"
	valueMinuteLayout   = "2006-01-02 15:04"
	valueDateTimeLayout = "2006-01-02 15:04:05"
)

// Diff returns the entries describing how original became updated.
//
// Rows are matched by key. A key only in original yields one DELETE per row
// (old value = title), a key only in updated yields one ADD per row (new value
// = title), and a matched pair yields one EDIT per differing column. Within
// one snapshot, rows sharing both key and fiscal year collapse to the last.
// Rows sharing a key across fiscal years are paired by fiscal year, then by
// title, then by position; unpaired rows become ADD or DELETE entries.
func Diff(original, updated []model.Task, actor, source string, now time.Time) ([]model.ChangelogEntry, error) {
	if err := checkKeys(original); err != nil {
		return nil, fmt.Errorf("original snapshot: %w", err)
	}
	if err := checkKeys(updated); err != nil {
		return nil, fmt.Errorf("updated snapshot: %w", err)
	}

	before := index(original)
	after := index(updated)

	entry := func(action model.Action, key int, field, oldV, newV string) model.ChangelogEntry {
		return model.ChangelogEntry{
			Timestamp: now,
			Action:    action,
			TaskKey:   key,
			User:      actor,
			Source:    source,
			Field:     field,
			OldValue:  oldV,
			NewValue:  newV,
		}
	}
	deleted := func(t model.Task) model.ChangelogEntry {
		return entry(model.ActionDelete, t.Key, model.FieldEntireTask, t.Title, "")
	}
	added := func(t model.Task) model.ChangelogEntry {
		return entry(model.ActionAdd, t.Key, model.FieldEntireTask, "", t.Title)
	}

	var deletes, adds, edits []model.ChangelogEntry
	for _, key := range before.keys {
		if _, ok := after.rows[key]; ok {
			continue
		}
		for _, t := range before.rows[key] {
			deletes = append(deletes, deleted(t))
		}
	}
	for _, key := range after.keys {
		if _, ok := before.rows[key]; ok {
			continue
		}
		for _, t := range after.rows[key] {
			adds = append(adds, added(t))
		}
	}
	for _, key := range before.keys {
		newRows, ok := after.rows[key]
		if !ok {
			continue
		}
		pairs, gone, fresh := pair(before.rows[key], newRows)
		for _, p := range pairs {
			oldVals, newVals := Values(p[0]), Values(p[1])
			for i, col := range model.TaskColumns {
				if changed(p[0], p[1], col, oldVals[i], newVals[i]) {
					edits = append(edits, entry(model.ActionEdit, key, col, oldVals[i], newVals[i]))
				}
			}
		}
		for _, t := range gone {
			deletes = append(deletes, deleted(t))
		}
		for _, t := range fresh {
			adds = append(adds, added(t))
		}
	}

	entries := make([]model.ChangelogEntry, 0, len(deletes)+len(adds)+len(edits))
	entries = append(entries, deletes...)
	entries = append(entries, adds...)
	entries = append(entries, edits...)
	return entries, nil
}

func checkKeys(tasks []model.Task) error {
	for i, t := range tasks {
		if t.Key <= 0 {
			return fmt.Errorf("%w: row %d has key %d", ErrMissingKey, i, t.Key)
		}
	}
	return nil
}

type keyed struct {
	keys []int
	rows map[int][]model.Task
}

// index groups rows by key in first-seen order. A later row with the same
// key and fiscal year replaces the earlier one.
func index(tasks []model.Task) keyed {
	k := keyed{rows: make(map[int][]model.Task)}
	for _, t := range tasks {
		rows, seen := k.rows[t.Key]
		if !seen {
			k.keys = append(k.keys, t.Key)
		}
		replaced := false
		for i := range rows {
			if rows[i].FiscalYear == t.FiscalYear {
				rows[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			rows = append(rows, t)
		}
		k.rows[t.Key] = rows
	}
	return k
}

// pair matches rows sharing one key. It returns matched pairs plus the
// leftovers from each side.
func pair(a, b []model.Task) (pairs [][2]model.Task, restA, restB []model.Task) {
	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))

	match := func(same func(x, y model.Task) bool) {
		for i := range a {
			if usedA[i] {
				continue
			}
			for j := range b {
				if !usedB[j] && same(a[i], b[j]) {
					pairs = append(pairs, [2]model.Task{a[i], b[j]})
					usedA[i], usedB[j] = true, true
					break
				}
			}
		}
	}
	match(func(x, y model.Task) bool { return x.FiscalYear == y.FiscalYear })
	match(func(x, y model.Task) bool { return x.Title == y.Title })
	match(func(x, y model.Task) bool { return true })

	for i, used := range usedA {
		if !used {
			restA = append(restA, a[i])
		}
	}
	for j, used := range usedB {
		if !used {
			restB = append(restB, b[j])
		}
	}
	return pairs, restA, restB
}

// changed reports whether col differs between a and b. Dates compare as
// instants at the storage resolution of one second; other columns compare
// by their logged value.
func changed(a, b model.Task, col, oldV, newV string) bool {
	switch col {
	case model.ColumnStart:
		return !sameInstant(a.Start, b.Start)
	case model.ColumnEnd:
		return !sameInstant(a.End, b.End)
	}
	return oldV != newV
}

func sameInstant(a, b *time.Time) bool {
	aMissing := a == nil || a.IsZero()
	bMissing := b == nil || b.IsZero()
	if aMissing || bMissing {
		return aMissing == bMissing
	}
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// Values returns the logged representation of every non-key column of t,
// in model.TaskColumns order.
func Values(t model.Task) []string {
	fy := ""
	if t.FiscalYear != 0 {
		fy = FormatValue(t.FiscalYear)
	}
	return []string{
		FormatValue(t.Title),
		FormatValue(t.Bucket),
		FormatValue(t.AssignmentTitle),
		FormatValue(t.Semester),
		fy,
		FormatValue(t.Audience),
		FormatValue(t.Start),
		FormatValue(t.End),
		FormatValue(string(t.Progress)),
	}
}

// FormatValue stringifies a value for the changelog. Dates render as
// YYYY-MM-DD, followed by the time of day when it is not midnight. Missing
// values (nil, zero time, NaN) render as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *time.Time:
		if x == nil {
			return ""
		}
		return FormatValue(*x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		switch {
		case x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0:
			return x.Format(valueDateLayout)
		case x.Second() == 0:
			return x.Format(valueMinuteLayout)
		default:
			return x.Format(valueDateTimeLayout)
		}
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
