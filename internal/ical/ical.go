// Package ical renders task snapshots as RFC 5545 calendar documents.
//
// One renderer serves both export entry points. The feed style describes
// events by bucket and fiscal year; the task style describes the bucket,
// assignment and progress of a single task.
//
// A start or end at local midnight is a date. When both are dates the event
// is all-day with an exclusive DTEND (end + 1 day). Otherwise both values are
// converted to UTC and DTEND is emitted as given.
package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baiirun/tracker/internal/model"
	"github.com/google/uuid"
)

const (
	prodID      = "-//Project Tracker//EN"
	uidDomain   = "tracker"
	utcLayout   = "20060102T150405Z"
	dateLayout  = "20060102"
	maxLineSize = 75
)

// Detail selects how event descriptions are written.
type Detail int

const (
	// DetailFeed describes an event by title, bucket and fiscal year.
	DetailFeed Detail = iota
	// DetailTask describes an event by bucket, assignment and progress.
	DetailTask
)

// Options configures Render. Zero values get defaults.
type Options struct {
	Name   string
	Now    time.Time
	NewUID func() string
	Detail Detail
}

// DefaultName is used for X-WR-CALNAME when Options.Name is empty.
const DefaultName = "Project Tracker"

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.NewUID == nil {
		o.NewUID = newUID
	}
	return o
}

func newUID() string {
	return uuid.NewString() + "@" + uidDomain
}

// Render returns the calendar document for tasks. Tasks without both a start
// and an end are skipped.
func Render(tasks []model.Task, opts Options) []byte {
	opts = opts.withDefaults()

	var w writer
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.line("PRODID:" + prodID)
	w.line("METHOD:PUBLISH")
	w.line("X-WR-CALNAME:" + Escape(opts.Name))
	w.line("CALSCALE:GREGORIAN")

	stamp := opts.Now.UTC().Format(utcLayout)
	hasTimed := false
	for _, t := range tasks {
		if !t.HasDates() {
			continue
		}
		w.line("BEGIN:VEVENT")
		w.line("UID:" + opts.NewUID())
		w.line("DTSTAMP:" + stamp)

		start, end := *t.Start, *t.End
		if IsAllDay(start) && IsAllDay(end) {
			w.line("DTSTART;VALUE=DATE:" + start.Format(dateLayout))
			w.line("DTEND;VALUE=DATE:" + end.AddDate(0, 0, 1).Format(dateLayout))
		} else {
			hasTimed = true
			w.line("DTSTART:" + FormatUTC(start))
			w.line("DTEND:" + FormatUTC(end))
		}

		w.line("SUMMARY:" + Escape(t.Bucket+" - "+t.Title))
		if desc := description(t, opts.Detail); desc != "" {
			w.line("DESCRIPTION:" + Escape(desc))
		}
		w.line("END:VEVENT")
	}

	if hasTimed {
		w.line("BEGIN:VTIMEZONE")
		w.line("TZID:UTC")
		w.line("BEGIN:STANDARD")
		w.line("DTSTART:19700101T000000")
		w.line("TZOFFSETFROM:+0000")
		w.line("TZOFFSETTO:+0000")
		w.line("TZNAME:UTC")
		w.line("END:STANDARD")
		w.line("END:VTIMEZONE")
	}
	w.line("END:VCALENDAR")
	return w.buf.Bytes()
}

// IsAllDay reports whether t has no time-of-day component.
func IsAllDay(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// FormatUTC renders t as an RFC 5545 UTC date-time.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

func description(t model.Task, d Detail) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+value)
		}
	}
	switch d {
	case DetailTask:
		add("", t.Title)
		add("Bucket: ", t.Bucket)
		add("Assignment: ", t.AssignmentTitle)
		add("Progress: ", string(t.Progress))
	default:
		add("", t.Title)
		add("Bucket: ", t.Bucket)
		if t.FiscalYear != 0 {
			add("FY: ", fmt.Sprint(t.FiscalYear))
		}
	}
	return strings.Join(parts, "\n")
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// Escape escapes a TEXT property value.
func Escape(s string) string {
	return escaper.Replace(s)
}

type writer struct {
	buf bytes.Buffer
}

// line writes one content line, folded at 75 octets, terminated by CRLF.
func (w *writer) line(s string) {
	limit := maxLineSize
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		w.buf.WriteString(s[:cut])
		w.buf.WriteString("\r\n ")
		s = s[cut:]
		// Continuation lines carry a leading space.
		limit = maxLineSize - 1
	}
	w.buf.WriteString(s)
	w.buf.WriteString("\r\n")
}
