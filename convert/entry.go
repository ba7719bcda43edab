// Package convert turns Microsoft Graph calendar events into org-mode
// nodes. Conversion is a pure function: one event in, one node out, no
// shared state.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/santoshs/ol-calendar/graph"
	"github.com/santoshs/ol-calendar/org"
)

// PlaceholderHeading is used when an event has no subject; an org
// headline must never be empty.
const PlaceholderHeading = "(no subject)"

// graphTimeLayouts are the date-time shapes Graph emits for event
// start/end; the first is the documented 7-digit-fraction form.
var graphTimeLayouts = []string{
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ValidationError reports event data the converter refuses to guess at.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.Field, e.Reason)
}

// Options control the conversion.
type Options struct {
	// Location is the zone org timestamps are rendered in; nil means
	// the process-local zone.
	Location *time.Location
	// BaseTags are attached to every entry before event categories.
	BaseTags []string
}

// Entry builds the org node for one calendar event.
//
// Start and end must both parse and start must not follow end; anything
// else is a *ValidationError, never a silently unscheduled entry. The
// timestamp is attached only when the event starts and ends on the same
// local day; multi-day events stay unscheduled.
func Entry(event *graph.Event, opts Options) (*org.Node, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	start, err := parseGraphTime(event.Start, loc)
	if err != nil {
		return nil, &ValidationError{Field: "start", Reason: err.Error()}
	}
	end, err := parseGraphTime(event.End, loc)
	if err != nil {
		return nil, &ValidationError{Field: "end", Reason: err.Error()}
	}
	if start.After(end) {
		return nil, &ValidationError{Field: "start", Reason: fmt.Sprintf("start %s after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))}
	}

	node := &org.Node{
		Heading: strings.TrimSpace(event.Subject),
		Body:    event.BodyPreview,
		Level:   1,
	}
	if node.Heading == "" {
		node.Heading = PlaceholderHeading
	}
	node.Tags = append(node.Tags, opts.BaseTags...)
	for _, category := range event.Categories {
		node.AddTag(strings.ToLower(category))
	}
	if event.Location != nil && event.Location.DisplayName != "" {
		node.SetProperty("LOCATION", event.Location.DisplayName)
	}
	if event.OnlineMeeting != nil && event.OnlineMeeting.JoinURL != "" {
		node.SetProperty("JOINURL", event.OnlineMeeting.JoinURL)
	}
	if event.ID != "" {
		node.SetProperty("MEETING_ID", event.ID)
	}
	if event.ResponseStatus != nil && event.ResponseStatus.Response != "" {
		node.SetProperty("RESPONSE_STATUS", event.ResponseStatus.Response)
	}
	if sameDay(start, end) {
		node.Timestamp = &org.Timestamp{Start: start, End: end}
	}
	return node, nil
}

// parseGraphTime reads a Graph event time as UTC and converts it to loc.
func parseGraphTime(dt *graph.DateTimeZone, loc *time.Location) (time.Time, error) {
	if dt == nil || strings.TrimSpace(dt.DateTime) == "" {
		return time.Time{}, fmt.Errorf("missing date-time")
	}
	for _, layout := range graphTimeLayouts {
		if t, err := time.Parse(layout, dt.DateTime); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date-time %q", dt.DateTime)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
