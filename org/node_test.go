package org

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNodeOrg(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	node := &Node{
		Heading:   "Standup",
		Tags:      []string{"meeting", "work"},
		Timestamp: &Timestamp{Start: start, End: start.Add(15 * time.Minute)},
		Properties: []Property{
			{Name: "LOCATION", Value: "Room 4"},
			{Name: "MEETING_ID", Value: "abc123"},
		},
		Body:  "Daily sync.",
		Level: 1,
	}
	want := "* Standup  :meeting:work:\n" +
		"<2024-01-02 09:00-09:15>\n" +
		":PROPERTIES:\n" +
		":LOCATION: Room 4\n" +
		":MEETING_ID: abc123\n" +
		":END:\n" +
		"Daily sync."
	assert.Equal(t, want, node.Org())
}

func TestNodeOrgBare(t *testing.T) {
	node := &Node{Heading: "Standup", Level: 1}
	assert.Equal(t, "* Standup", node.Org())
}

func TestNodeOrgTodoAndClocks(t *testing.T) {
	node := &Node{
		Heading: "Review",
		Todo:    "DONE",
		Clocks:  []string{"[2024-01-02 Tue 09:00]--[2024-01-02 Tue 09:30] =>  0:30"},
		Level:   2,
	}
	want := "** DONE Review\n" +
		":LOGBOOK:\n" +
		"CLOCK: [2024-01-02 Tue 09:00]--[2024-01-02 Tue 09:30] =>  0:30\n" +
		":END:"
	assert.Equal(t, want, node.Org())
}

func TestNodeOrgFiltersBodyTimestampLines(t *testing.T) {
	node := &Node{
		Heading:   "Standup",
		Timestamp: &Timestamp{Start: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
		Body:      "agenda\n<2024-01-01 Mon 09:00>\nnotes",
		Level:     1,
	}
	want := "* Standup\n<2024-01-02 09:00>\nagenda\nnotes"
	assert.Equal(t, want, node.Org())
}

func TestNodeOrgEmptyHeadingKeepsBodyOnly(t *testing.T) {
	node := &Node{Body: "preamble text", Level: 0}
	assert.Equal(t, "preamble text", node.Org())
}

func TestNodeProperties(t *testing.T) {
	node := &Node{}
	node.SetProperty("MEETING_ID", "a1")
	node.SetProperty("LOCATION", "Room 4")
	node.SetProperty("meeting_id", "a2")
	assert.Equal(t, "a2", node.Property("MEETING_ID"))
	assert.Equal(t, 2, len(node.Properties))
	assert.Equal(t, "", node.Property("MISSING"))
}

func TestNodeAddTag(t *testing.T) {
	node := &Node{Tags: []string{"meeting"}}
	node.AddTag("work")
	node.AddTag("meeting")
	assert.Equal(t, []string{"meeting", "work"}, node.Tags)
}
