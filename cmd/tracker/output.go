package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
)

// TaskJSON is the --json form of a task.
type TaskJSON struct {
	Key             int    `json:"key"`
	Task            string `json:"task"`
	Bucket          string `json:"bucket"`
	AssignmentTitle string `json:"assignment_title"`
	Semester        string `json:"semester,omitempty"`
	FiscalYear      int    `json:"fiscal_year"`
	Audience        string `json:"audience,omitempty"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
	Progress        string `json:"progress"`
}

func taskToJSON(t model.Task) TaskJSON {
	return TaskJSON{
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

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortDate renders a task date as YYYY-MM-DD, or "-" when missing.
func shortDate(t model.Task, end bool) string {
	d := t.Start
	if end {
		d = t.End
	}
	if d == nil {
		return "-"
	}
	return d.Format("2006-01-02")
}

func printTasks(w io.Writer, tasks []model.Task) error {
	if flagJSON {
		out := make([]TaskJSON, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, taskToJSON(t))
		}
		return writeJSON(w, out)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "#%-5d %-12s %s → %s  [%s] %s (%s, FY%d)\n",
			t.Key, t.Progress, shortDate(t, false), shortDate(t, true),
			t.Bucket, t.Title, t.AssignmentTitle, t.FiscalYear)
	}
	return nil
}

// parseYears parses a comma-separated list of fiscal years.
func parseYears(raw string) ([]int, error) {
	var years []int
	for _, part := range splitList(raw) {
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
