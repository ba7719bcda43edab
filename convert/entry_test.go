package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santoshs/ol-calendar/graph"
	"github.com/santoshs/ol-calendar/org"
)

func graphTime(s string) *graph.DateTimeZone {
	return &graph.DateTimeZone{DateTime: s, TimeZone: "UTC"}
}

func TestEntry(t *testing.T) {
	event := &graph.Event{
		ID:          "ev-1",
		Subject:     "Standup",
		BodyPreview: "Daily sync.",
		Start:       graphTime("2024-01-02T09:00:00.0000000"),
		End:         graphTime("2024-01-02T09:15:00.0000000"),
		Location:    &graph.Location{DisplayName: "Room 4"},
		OnlineMeeting: &graph.OnlineMeeting{
			JoinURL: "https://teams.microsoft.com/l/meetup-join/abc",
		},
		ResponseStatus: &graph.ResponseStatus{Response: "accepted"},
		Categories:     []string{"Planning"},
	}

	node, err := Entry(event, Options{Location: time.UTC, BaseTags: []string{"meeting", "work"}})
	require.NoError(t, err)

	assert.Equal(t, "Standup", node.Heading)
	assert.Equal(t, []string{"meeting", "work", "planning"}, node.Tags)
	assert.Equal(t, "Room 4", node.Property("LOCATION"))
	assert.Equal(t, "https://teams.microsoft.com/l/meetup-join/abc", node.Property("JOINURL"))
	assert.Equal(t, "ev-1", node.Property("MEETING_ID"))
	assert.Equal(t, "accepted", node.Property("RESPONSE_STATUS"))
	assert.Equal(t, "Daily sync.", node.Body)
	require.NotNil(t, node.Timestamp)
	assert.Equal(t, "<2024-01-02 09:00-09:15>", node.Timestamp.String())
}

// The minimal event renders to a heading line plus a timestamp line.
func TestEntryRendersHeadingAndTimestamp(t *testing.T) {
	event := &graph.Event{
		Subject: "Standup",
		Start:   graphTime("2024-01-02T09:00:00.0000000"),
		End:     graphTime("2024-01-02T09:15:00.0000000"),
	}
	node, err := Entry(event, Options{Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, "* Standup\n<2024-01-02 09:00-09:15>", node.Org())
}

// The rendered timestamp parses back to the event's instants.
func TestEntryTimestampRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	event := &graph.Event{
		Subject: "Standup",
		Start:   graphTime("2024-01-02T09:00:00.0000000"),
		End:     graphTime("2024-01-02T09:15:00.0000000"),
	}
	node, err := Entry(event, Options{Location: loc})
	require.NoError(t, err)
	require.NotNil(t, node.Timestamp)

	parsed, err := org.ParseTimestamp(node.Timestamp.String(), loc)
	require.NoError(t, err)
	assert.True(t, parsed.Start.Equal(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)))
	assert.True(t, parsed.End.Equal(time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)))
}

func TestEntryConvertsToLocalZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	event := &graph.Event{
		Subject: "Standup",
		Start:   graphTime("2024-01-02T09:00:00.0000000"),
		End:     graphTime("2024-01-02T09:15:00.0000000"),
	}
	node, err := Entry(event, Options{Location: loc})
	require.NoError(t, err)
	require.NotNil(t, node.Timestamp)
	// 09:00 UTC is 14:30 IST
	assert.Equal(t, "<2024-01-02 14:30-14:45>", node.Timestamp.String())
}

func TestEntryEmptySubjectUsesPlaceholder(t *testing.T) {
	event := &graph.Event{
		Start: graphTime("2024-01-02T09:00:00.0000000"),
		End:   graphTime("2024-01-02T09:15:00.0000000"),
	}
	node, err := Entry(event, Options{Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderHeading, node.Heading)
}

func TestEntryMultiDayEventStaysUnscheduled(t *testing.T) {
	event := &graph.Event{
		Subject: "Offsite",
		Start:   graphTime("2024-01-02T09:00:00.0000000"),
		End:     graphTime("2024-01-04T17:00:00.0000000"),
	}
	node, err := Entry(event, Options{Location: time.UTC})
	require.NoError(t, err)
	assert.Nil(t, node.Timestamp)
}

func TestEntryValidation(t *testing.T) {
	cases := []struct {
		name  string
		event *graph.Event
		field string
	}{
		{
			name:  "missing start",
			event: &graph.Event{Subject: "X", End: graphTime("2024-01-02T09:15:00.0000000")},
			field: "start",
		},
		{
			name:  "missing end",
			event: &graph.Event{Subject: "X", Start: graphTime("2024-01-02T09:00:00.0000000")},
			field: "end",
		},
		{
			name: "malformed start",
			event: &graph.Event{
				Subject: "X",
				Start:   graphTime("02/01/2024 9am"),
				End:     graphTime("2024-01-02T09:15:00.0000000"),
			},
			field: "start",
		},
		{
			name: "start after end",
			event: &graph.Event{
				Subject: "X",
				Start:   graphTime("2024-01-02T10:00:00.0000000"),
				End:     graphTime("2024-01-02T09:00:00.0000000"),
			},
			field: "start",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Entry(tc.event, Options{Location: time.UTC})
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}
