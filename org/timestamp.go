package org

import (
	"fmt"
	"regexp"
	"time"
)

// Timestamp is an active org-mode timestamp: a start time with an
// optional same-day end time.
type Timestamp struct {
	Start time.Time
	End   time.Time // zero when the timestamp carries no end time
}

// timestampExpr matches active timestamps with an optional day-of-week
// abbreviation and an optional -HH:MM end, e.g. <2024-01-02 09:00-09:15>
// or <2024-01-02 Tue 09:00>.
var timestampExpr = regexp.MustCompile(`^<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3}\.?)?\s+(\d{1,2}:\d{2})(?:-(\d{1,2}:\d{2}))?>$`)

// String renders the timestamp as <YYYY-MM-DD HH:MM> or
// <YYYY-MM-DD HH:MM-HH:MM> when an end time is set.
func (t *Timestamp) String() string {
	if t == nil || t.Start.IsZero() {
		return ""
	}
	if t.End.IsZero() || t.End.Equal(t.Start) {
		return t.Start.Format("<2006-01-02 15:04>")
	}
	return fmt.Sprintf("<%s-%s>", t.Start.Format("2006-01-02 15:04"), t.End.Format("15:04"))
}

// ParseTimestamp parses an active timestamp in loc. The end time, when
// present, is resolved on the start date.
func ParseTimestamp(s string, loc *time.Location) (*Timestamp, error) {
	if loc == nil {
		loc = time.Local
	}
	m := timestampExpr.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid org timestamp: %q", s)
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2], loc)
	if err != nil {
		return nil, fmt.Errorf("invalid org timestamp %q: %w", s, err)
	}
	ts := &Timestamp{Start: start}
	if m[3] != "" {
		end, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[3], loc)
		if err != nil {
			return nil, fmt.Errorf("invalid org timestamp %q: %w", s, err)
		}
		ts.End = end
	}
	return ts, nil
}

// IsTimestampLine reports whether a body line is a standalone active
// timestamp; such lines are filtered when serializing node bodies so a
// re-imported node does not duplicate its schedule.
func IsTimestampLine(line string) bool {
	return bodyTimestampExpr.MatchString(line)
}

var bodyTimestampExpr = regexp.MustCompile(`^\s*<\d{4}-\d{2}-\d{2}(?:\s+[A-Za-z]{2,3}\.?)?\s+\d{1,2}:\d{2}(?:-\d{1,2}:\d{2})?>\s*$`)
