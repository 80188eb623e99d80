package db

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is how task START/END values are written. It has no spaces so
// ParseDate's leading-token rule keeps the time of day.
const dateLayout = "2006-01-02T15:04:05"

var dateLayouts = []string{
	dateLayout,
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a task date leniently. Only the leading whitespace-separated
// token is considered, so values such as "2025-10-10 (Friday)" parse as the
// date. Values without a zone are read in the local zone. Empty or unparseable
// input returns nil.
func ParseDate(raw string) *time.Time {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	token := fields[0]
	if t, err := time.Parse(time.RFC3339, token); err == nil {
		local := t.In(time.Local)
		return &local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, token, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// inputLayouts are accepted by ParseDateTime in addition to dateLayouts.
var inputLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime parses a date entered by a user. Unlike ParseDate the whole
// value must match, so a space-separated time of day is kept and trailing
// text is an error. Empty input returns nil and no error.
func ParseDateTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		local := t.In(time.Local)
		return &local, nil
	}
	for _, layout := range append(inputLayouts, dateLayouts...) {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

// FormatDate renders a task date for storage. Nil renders as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(time.Local).Format(dateLayout)
}
