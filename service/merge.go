package service

import (
	"log"

	"github.com/santoshs/ol-calendar/org"
)

const meetingIDProperty = "MEETING_ID"

// Merge folds freshly converted entries into an existing document,
// keyed by the MEETING_ID property. Known entries are refreshed in
// place, unknown ones appended. Returns how many were added and how
// many existing nodes changed.
func Merge(doc *org.File, entries []*org.Node) (added, updated int) {
	existing := map[string]*org.Node{}
	for _, node := range doc.Children {
		if id := node.Property(meetingIDProperty); id != "" {
			existing[id] = node
		}
	}
	for _, entry := range entries {
		id := entry.Property(meetingIDProperty)
		old, ok := existing[id]
		if id == "" || !ok {
			doc.Children = append(doc.Children, entry)
			added++
			continue
		}
		if refresh(old, entry) {
			updated++
		}
	}
	return added, updated
}

// refresh updates a tracked node from its latest calendar state. A DONE
// node whose meeting moved to a later slot is rescheduled and reopened;
// the todo state changes only when the timestamp does.
func refresh(old, entry *org.Node) bool {
	changed := old.Heading != entry.Heading || old.Body != entry.Body
	old.Heading = entry.Heading
	old.Body = entry.Body

	if old.Timestamp == nil || entry.Timestamp == nil {
		return changed
	}
	if old.Todo == "DONE" && old.Timestamp.Start.Before(entry.Timestamp.Start) {
		log.Printf("updating %s", old.Heading)
		old.Timestamp = entry.Timestamp
		old.Todo = ""
		changed = true
	}
	return changed
}
