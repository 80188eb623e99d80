package changelog

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

var now = time.Date(2025, 10, 10, 9, 30, 0, 0, time.Local)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func countActions(entries []model.ChangelogEntry) map[model.Action]int {
	counts := make(map[model.Action]int)
	for _, e := range entries {
		counts[e.Action]++
	}
	return counts
}

func TestDiff_AddEditDelete(t *testing.T) {
	original := []model.Task{{Key: 1, Title: "A"}, {Key: 2, Title: "B"}}
	updated := []model.Task{{Key: 1, Title: "A-edited"}, {Key: 3, Title: "C"}}

	entries, err := Diff(original, updated, "alice@x.edu", "Find and Filter", now)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}

	want := []model.ChangelogEntry{
		{Action: model.ActionDelete, TaskKey: 2, Field: model.FieldEntireTask, OldValue: "B"},
		{Action: model.ActionAdd, TaskKey: 3, Field: model.FieldEntireTask, NewValue: "C"},
		{Action: model.ActionEdit, TaskKey: 1, Field: model.ColumnTask, OldValue: "A", NewValue: "A-edited"},
	}
	for i, w := range want {
		got := entries[i]
		if got.Action != w.Action || got.TaskKey != w.TaskKey || got.Field != w.Field ||
			got.OldValue != w.OldValue || got.NewValue != w.NewValue {
			t.Errorf("entry %d = %+v, want %+v", i, got, w)
		}
		if got.User != "alice@x.edu" || got.Source != "Find and Filter" || !got.Timestamp.Equal(now) {
			t.Errorf("entry %d metadata = %+v", i, got)
		}
	}
}

func TestDiff_NoChanges(t *testing.T) {
	tasks := []model.Task{
		{Key: 1, Title: "A", FiscalYear: 2026, Start: day(2025, 10, 10), End: day(2025, 10, 11)},
		{Key: 2, Title: "B"},
	}
	entries, err := Diff(tasks, model.CloneTasks(tasks), "a@x.edu", "test", now)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestDiff_OneEntryPerChangedField(t *testing.T) {
	original := []model.Task{{Key: 7, Title: "A", Bucket: "Fall", Progress: model.ProgressNotStarted,
		Start: day(2025, 10, 10), End: day(2025, 10, 10)}}
	updated := model.CloneTasks(original)
	updated[0].Bucket = "Spring"
	updated[0].Progress = model.ProgressComplete
	updated[0].End = day(2025, 10, 12)

	entries, err := Diff(original, updated, "a@x.edu", "test", now)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 EDIT entries, got %d: %+v", len(entries), entries)
	}

	byField := make(map[string]model.ChangelogEntry)
	for _, e := range entries {
		if e.Action != model.ActionEdit {
			t.Errorf("unexpected action %s", e.Action)
		}
		byField[e.Field] = e
	}
	if e := byField[model.ColumnEnd]; e.OldValue != "2025-10-10" || e.NewValue != "2025-10-12" {
		t.Errorf("END entry = %+v", e)
	}
	if e := byField[model.ColumnProgress]; e.OldValue != "NOT STARTED" || e.NewValue != "COMPLETE" {
		t.Errorf("PROGRESS entry = %+v", e)
	}
}

func TestDiff_SameDayTimeChange(t *testing.T) {
	at := func(h, m int) *time.Time {
		v := time.Date(2025, 10, 10, h, m, 0, 0, time.Local)
		return &v
	}
	original := []model.Task{{Key: 4, Title: "Office hours", Start: at(14, 30), End: at(15, 30)}}
	updated := model.CloneTasks(original)
	updated[0].Start = at(16, 0)
	updated[0].End = at(17, 0)

	entries, err := Diff(original, updated, "a@x.edu", "test", now)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 EDIT entries, got %d: %+v", len(entries), entries)
	}
	if e := entries[0]; e.Field != model.ColumnStart || e.OldValue != "2025-10-10 14:30" || e.NewValue != "2025-10-10 16:00" {
		t.Errorf("START entry = %+v", e)
	}
	if e := entries[1]; e.Field != model.ColumnEnd || e.OldValue != "2025-10-10 15:30" || e.NewValue != "2025-10-10 17:00" {
		t.Errorf("END entry = %+v", e)
	}
}

func TestDiff_SameInstantInAnotherZoneNotLogged(t *testing.T) {
	start := time.Date(2025, 10, 10, 14, 30, 0, 0, time.UTC)
	moved := start.In(time.FixedZone("UTC+2", 2*60*60))
	original := []model.Task{{Key: 1, Start: &start}}
	updated := []model.Task{{Key: 1, Start: &moved}}

	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestDiff_BlankToBlankNotLogged(t *testing.T) {
	original := []model.Task{{Key: 1, Title: "A"}}
	updated := []model.Task{{Key: 1, Title: "A", Start: nil, Audience: ""}}

	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestDiff_MissingValueRendersEmpty(t *testing.T) {
	original := []model.Task{{Key: 1, Start: day(2025, 1, 2)}}
	updated := []model.Task{{Key: 1}}

	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	if len(entries) != 1 || entries[0].OldValue != "2025-01-02" || entries[0].NewValue != "" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDiff_MissingKey(t *testing.T) {
	_, err := Diff([]model.Task{{Key: 1}}, []model.Task{{Key: 0, Title: "no key"}}, "a@x.edu", "test", now)
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}

func TestDiff_DuplicateKeysPairByFiscalYear(t *testing.T) {
	original := []model.Task{
		{Key: 1, Title: "Opening", FiscalYear: 2025},
		{Key: 1, Title: "Opening", FiscalYear: 2026},
	}
	updated := []model.Task{
		{Key: 1, Title: "Opening", FiscalYear: 2026},
		{Key: 1, Title: "Opening v2", FiscalYear: 2025},
	}

	entries, err := Diff(original, updated, "a@x.edu", "test", now)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	if entries[0].Field != model.ColumnTask || entries[0].NewValue != "Opening v2" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestDiff_DuplicateKeyLeftoversBecomeAddDelete(t *testing.T) {
	original := []model.Task{{Key: 4, Title: "Audit", FiscalYear: 2025}}
	updated := []model.Task{
		{Key: 4, Title: "Audit", FiscalYear: 2025},
		{Key: 4, Title: "Audit", FiscalYear: 2026},
	}

	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	counts := countActions(entries)
	if len(entries) != 1 || counts[model.ActionAdd] != 1 {
		t.Errorf("expected one ADD, got %+v", entries)
	}

	back, _ := Diff(updated, original, "a@x.edu", "test", now)
	if len(back) != 1 || back[0].Action != model.ActionDelete || back[0].OldValue != "Audit" {
		t.Errorf("expected one DELETE, got %+v", back)
	}
}

func TestDiff_SameKeyAndYearLastWins(t *testing.T) {
	original := []model.Task{{Key: 1, Title: "A", FiscalYear: 2026}}
	updated := []model.Task{
		{Key: 1, Title: "stale", FiscalYear: 2026},
		{Key: 1, Title: "A", FiscalYear: 2026},
	}
	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	if len(entries) != 0 {
		t.Errorf("expected last row to win with no changes, got %+v", entries)
	}
}

func TestDiff_Completeness(t *testing.T) {
	original := []model.Task{
		{Key: 1, Title: "A", Bucket: "X"},
		{Key: 2, Title: "B"},
		{Key: 3, Title: "C"},
	}
	updated := []model.Task{
		{Key: 1, Title: "A2", Bucket: "Y", Semester: "Fall"},
		{Key: 4, Title: "D"},
		{Key: 5, Title: "E"},
	}
	entries, _ := Diff(original, updated, "a@x.edu", "test", now)
	counts := countActions(entries)
	if counts[model.ActionDelete] != 2 || counts[model.ActionAdd] != 2 || counts[model.ActionEdit] != 3 {
		t.Errorf("counts = %v", counts)
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2025, 10, 10, 14, 30, 0, 0, time.Local)
	var nilTime *time.Time

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"int", 2026, "2026"},
		{"float", 2.5, "2.5"},
		{"nan", math.NaN(), ""},
		{"midnight", *day(2025, 10, 10), "2025-10-10"},
		{"time", ts, "2025-10-10 14:30"},
		{"time pointer", &ts, "2025-10-10 14:30"},
		{"seconds", ts.Add(15 * time.Second), "2025-10-10 14:30:15"},
		{"nil time pointer", nilTime, ""},
		{"zero time", time.Time{}, ""},
		{"progress", model.ProgressComplete, "COMPLETE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
