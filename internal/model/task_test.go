package model

import (
	"testing"
	"time"
)

func TestProgress_IsValid(t *testing.T) {
	tests := []struct {
		progress Progress
		valid    bool
	}{
		{ProgressNotStarted, true},
		{ProgressInProgress, true},
		{ProgressComplete, true},
		{Progress(""), false},
		{Progress("DONE"), false},
		{Progress("complete"), false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.progress), func(t *testing.T) {
			if got := tt.progress.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestAction_IsValid(t *testing.T) {
	for _, a := range []Action{ActionAdd, ActionDelete, ActionEdit} {
		if !a.IsValid() {
			t.Errorf("%s should be valid", a)
		}
	}
	if Action("UPDATE").IsValid() {
		t.Error("UPDATE should not be valid")
	}
}

func TestTask_IsPlaceholder(t *testing.T) {
	sentinel := time.Date(1900, 1, 1, 0, 0, 0, 0, time.Local)
	real := time.Date(2025, 8, 1, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"placeholder year", Task{FiscalYear: 1900}, true},
		{"boundary year", Task{FiscalYear: 1901}, true},
		{"sentinel start", Task{FiscalYear: 2026, Start: &sentinel}, true},
		{"real task", Task{FiscalYear: 2026, Start: &real}, false},
		{"missing year", Task{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsPlaceholder(); got != tt.want {
				t.Errorf("IsPlaceholder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_CloneDoesNotShareDates(t *testing.T) {
	start := time.Date(2025, 10, 10, 0, 0, 0, 0, time.Local)
	orig := Task{Key: 1, Start: &start}

	c := orig.Clone()
	*c.Start = c.Start.AddDate(0, 0, 1)

	if !orig.Start.Equal(start) {
		t.Errorf("original start changed to %v", orig.Start)
	}
}

func TestNotification_HeaderBody(t *testing.T) {
	n := Notification{Message: JoinMessage("New comment from a@x.edu on task #4", "looks good")}
	if n.Header() != "New comment from a@x.edu on task #4" {
		t.Errorf("header = %q", n.Header())
	}
	if n.Body() != "looks good" {
		t.Errorf("body = %q", n.Body())
	}

	plain := Notification{Message: "just a header"}
	if plain.Header() != "just a header" || plain.Body() != "" {
		t.Errorf("plain message split = %q / %q", plain.Header(), plain.Body())
	}
}

func TestUser_Name(t *testing.T) {
	if got := (User{Email: "a@x.edu", FirstName: "Ann", LastName: "Lee"}).Name(); got != "Ann Lee" {
		t.Errorf("Name() = %q", got)
	}
	if got := (User{Email: "a@x.edu"}).Name(); got != "a@x.edu" {
		t.Errorf("Name() = %q", got)
	}
}
