package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/tracker/internal/config"
	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/notify"
	"github.com/baiirun/tracker/internal/snapshot"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// resetFlags restores the package-level flag variables after a test.
func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		flagDB, flagEnv, flagJSON, flagActor = "", "", false, ""
		flagCalBucket, flagCalYears, flagCalOut, flagCalTask, flagCalPublish = "", "", "", 0, false
		flagTaskBucket, flagTaskAssignment, flagTaskSemester = "", "", ""
		flagTaskYear, flagTaskAudience, flagTaskStart, flagTaskEnd, flagTaskProgress = 0, "", "", "", ""
		flagFilterBuckets, flagFilterYears, flagFilterPreset = "", "", ""
		flagDupYear, flagDupShift = 0, snapshot.DefaultShiftDays
		flagLogAction, flagLogSource, flagLogFrom, flagLogTo, flagLogLimit = "", "", "", "", 0
	})
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func TestTaskAddListAndChangelog(t *testing.T) {
	t.Setenv("TRACKER_CALENDAR_FILE", "")
	t.Setenv("TRACKER_CALENDAR_URL", "")
	path := filepath.Join(t.TempDir(), "tracker.db")

	out, err := run(t, "--db", path, "--as", "ada@example.edu", "task", "add", "Kickoff",
		"--bucket", "Outreach", "--assignment", "RD", "--fy", "2026",
		"--start", "2025-10-01", "--end", "2025-10-02")
	if err != nil {
		t.Fatalf("task add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Added task #1: Kickoff") {
		t.Errorf("task add output = %q", out)
	}

	out, err = run(t, "--db", path, "--json", "task", "list", "--bucket", "Outreach")
	if err != nil {
		t.Fatalf("task list: %v", err)
	}
	var listed []TaskJSON
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(listed) != 1 || listed[0].Key != 1 || listed[0].Progress != string(model.ProgressNotStarted) {
		t.Errorf("listed = %+v", listed)
	}

	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = database.Close() }()
	entries, err := database.LoadChangelog(context.Background())
	if err != nil {
		t.Fatalf("LoadChangelog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("changelog has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != model.ActionAdd || e.TaskKey != 1 || e.User != "ada@example.edu" || e.Source != "Add Task" {
		t.Errorf("entry = %+v", e)
	}
}

func TestDuplicateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	seed, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := seed.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	err = seed.SaveTasks(context.Background(), []model.Task{
		{Key: 1, Title: "Kickoff", Bucket: "Outreach", FiscalYear: 2025, Start: day(2024, 10, 1), End: day(2024, 10, 2)},
		{Key: 2, Title: "Budget", Bucket: "Finance", FiscalYear: 2025, Start: day(2024, 11, 1), End: day(2024, 11, 1)},
	})
	_ = seed.Close()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := run(t, "--db", path, "task", "duplicate", "--bucket", "Outreach", "--to-year", "2026")
	if err != nil {
		t.Fatalf("duplicate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Duplicated 1 task(s) into FY2026") {
		t.Errorf("output = %q", out)
	}

	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = database.Close() }()
	tasks, err := database.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	copied := tasks[2]
	if copied.Key != 3 || copied.FiscalYear != 2026 || !copied.Start.Equal(*day(2025, 9, 30)) {
		t.Errorf("copy = %+v (start %v)", copied, copied.Start)
	}
}

func TestDuplicateRequiresYear(t *testing.T) {
	if _, err := run(t, "--db", filepath.Join(t.TempDir(), "x.db"), "task", "duplicate"); err == nil {
		t.Error("expected error without --to-year")
	}
}

func TestRenderCalendar(t *testing.T) {
	resetFlags(t)
	tasks := []model.Task{
		{Key: 1, Title: "Kickoff", Bucket: "Outreach", FiscalYear: 2026, Start: day(2025, 10, 1), End: day(2025, 10, 2), Progress: model.ProgressNotStarted},
		{Key: 2, Title: "Budget", Bucket: "Finance", FiscalYear: 2026, Start: day(2025, 11, 1), End: day(2025, 11, 1), Progress: model.ProgressComplete},
		{Key: 3, Title: "Seed", Bucket: "Admin", FiscalYear: 1900, Start: day(1900, 1, 1), End: day(1900, 1, 1)},
		{Key: 4, Title: "Undated", Bucket: "Finance", FiscalYear: 2026},
	}
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)

	flagCalBucket = "Finance"
	doc, err := renderCalendar(tasks, "Dept", now)
	if err != nil {
		t.Fatalf("renderCalendar: %v", err)
	}
	s := string(doc)
	if strings.Count(s, "BEGIN:VEVENT") != 1 || !strings.Contains(s, "SUMMARY:Finance - Budget") {
		t.Errorf("bucket-filtered calendar:\n%s", s)
	}

	flagCalBucket = ""
	doc, err = renderCalendar(tasks, "Dept", now)
	if err != nil {
		t.Fatalf("renderCalendar: %v", err)
	}
	if got := strings.Count(string(doc), "BEGIN:VEVENT"); got != 3 {
		t.Errorf("feed has %d events, want 3 (undated skipped)", got)
	}

	flagCalTask = 1
	doc, err = renderCalendar(tasks, "Dept", now)
	if err != nil {
		t.Fatalf("renderCalendar single task: %v", err)
	}
	if !strings.Contains(strings.ReplaceAll(string(doc), "\r\n ", ""), `Progress: NOT STARTED`) {
		t.Errorf("single task should use task detail:\n%s", doc)
	}

	for key, msg := range map[int]string{99: "not found", 4: "no start and end"} {
		flagCalTask = key
		if _, err := renderCalendar(tasks, "Dept", now); err == nil || !strings.Contains(err.Error(), msg) {
			t.Errorf("task %d: err = %v, want %q", key, err, msg)
		}
	}

	flagCalTask = 0
	flagCalYears = "soon"
	if _, err := renderCalendar(tasks, "Dept", now); err == nil {
		t.Error("expected error for non-numeric year")
	}
}

func TestFilterCriteriaWithPreset(t *testing.T) {
	resetFlags(t)
	database := setupTestDB(t)
	a := newApp(config.Config{}, database, notify.LogMailer{}, nil)
	ctx := context.Background()

	flagActor = "ada@example.edu"
	if err := database.SavePreset(ctx, "ada@example.edu", "fy26", []int{2026}, []string{"Outreach"}); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}

	flagFilterPreset = "fy26"
	flagFilterBuckets = "Finance"
	c, err := filterCriteria(ctx, a)
	if err != nil {
		t.Fatalf("filterCriteria: %v", err)
	}
	if len(c.Years) != 1 || c.Years[0] != 2026 {
		t.Errorf("years = %v", c.Years)
	}
	if len(c.Buckets) != 2 {
		t.Errorf("buckets = %v, want Finance and Outreach", c.Buckets)
	}

	flagFilterPreset = "missing"
	if _, err := filterCriteria(ctx, a); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestTaskFromFlags(t *testing.T) {
	resetFlags(t)

	flagTaskStart = "2025-10-01T09:30"
	flagTaskEnd = "2025-10-01T11:00"
	flagTaskProgress = "in progress"
	task, err := taskFromFlags("  Orientation ")
	if err != nil {
		t.Fatalf("taskFromFlags: %v", err)
	}
	if task.Title != "Orientation" || task.Progress != model.ProgressInProgress {
		t.Errorf("task = %+v", task)
	}
	if task.Start.Hour() != 9 || task.Start.Minute() != 30 {
		t.Errorf("start = %v", task.Start)
	}

	flagTaskStart = "2025-10-01 14:30:00"
	flagTaskEnd = ""
	task, err = taskFromFlags("Advising")
	if err != nil {
		t.Fatalf("taskFromFlags with space-separated time: %v", err)
	}
	if task.Start.Hour() != 14 || task.Start.Minute() != 30 {
		t.Errorf("start = %v, want 14:30", task.Start)
	}

	tests := []struct {
		name             string
		start, end, prog string
	}{
		{"bad start", "tomorrow", "", ""},
		{"bad end", "", "later", ""},
		{"trailing text", "2025-10-01 (Wed)", "", ""},
		{"end before start", "2025-10-02", "2025-10-01", ""},
		{"bad progress", "", "", "blocked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagTaskStart, flagTaskEnd, flagTaskProgress = tt.start, tt.end, tt.prog
			if _, err := taskFromFlags("x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteChangelog(t *testing.T) {
	var buf bytes.Buffer
	err := writeChangelog(&buf, []model.ChangelogEntry{
		{Timestamp: time.Date(2025, 10, 6, 9, 0, 0, 0, time.Local), Action: model.ActionEdit, TaskKey: 7,
			User: "ada", Source: "Calendar Edit", Field: "END", OldValue: "2025-10-01", NewValue: "2025-10-03"},
		{Timestamp: time.Date(2025, 10, 6, 9, 5, 0, 0, time.Local), Action: model.ActionEdit,
			User: "ada", Source: "Admin - Planner Buckets", Field: "Planner Bucket Name", OldValue: "Ops", NewValue: "Operations"},
	})
	if err != nil {
		t.Fatalf("writeChangelog: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"TIMESTAMP", "#7", "N/A", "Calendar Edit", "Operations"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeChangelog(&buf, nil); err != nil {
		t.Fatalf("writeChangelog: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No changelog entries" {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestChangelogFilterFlags(t *testing.T) {
	resetFlags(t)

	flagLogAction = "delete"
	flagLogFrom = "2025-10-01"
	f, err := changelogFilter()
	if err != nil {
		t.Fatalf("changelogFilter: %v", err)
	}
	if f.Action != model.ActionDelete || f.From == nil || f.To != nil {
		t.Errorf("filter = %+v", f)
	}

	flagLogAction = "move"
	if _, err := changelogFilter(); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestSettingsHelpers(t *testing.T) {
	f, err := parseFrequency("weekly")
	if err != nil || f != model.FrequencyWeekly {
		t.Errorf("parseFrequency(weekly) = %q, %v", f, err)
	}
	if _, err := parseFrequency("hourly"); err == nil {
		t.Error("expected error for hourly")
	}

	settings := []model.Setting{{Email: "ada@example.edu", Frequency: model.FrequencyNever}}
	settings = upsertSetting(settings, "ADA@example.edu", model.FrequencyDaily)
	settings = upsertSetting(settings, " bo@example.edu ", model.FrequencyWeekly)
	if len(settings) != 2 {
		t.Fatalf("settings = %+v", settings)
	}
	if settings[0].Frequency != model.FrequencyDaily || settings[1].Email != "bo@example.edu" {
		t.Errorf("settings = %+v", settings)
	}
}

func TestParseYears(t *testing.T) {
	years, err := parseYears(" 2025, 2026 ,")
	if err != nil {
		t.Fatalf("parseYears: %v", err)
	}
	if len(years) != 2 || years[0] != 2025 || years[1] != 2026 {
		t.Errorf("years = %v", years)
	}
	if _, err := parseYears("2025,next"); err == nil {
		t.Error("expected error")
	}
	if years, _ := parseYears(""); years != nil {
		t.Errorf("empty input = %v, want nil", years)
	}
}
