package graph

// Types mirroring the Microsoft Graph event payload, trimmed to the
// fields the converter consumes.

// DateTimeZone is a Graph date-time with its time zone name.
type DateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Location carries the display name of an event location.
type Location struct {
	DisplayName string `json:"displayName"`
}

// OnlineMeeting carries the join URL for online events.
type OnlineMeeting struct {
	JoinURL string `json:"joinUrl"`
}

// ResponseStatus is the user's response to an invitation.
type ResponseStatus struct {
	Response string `json:"response"`
}

// ItemBody is the event description.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Event is one calendar event as returned by /me/calendarView.
type Event struct {
	ID             string          `json:"id"`
	Subject        string          `json:"subject"`
	BodyPreview    string          `json:"bodyPreview"`
	Body           *ItemBody       `json:"body,omitempty"`
	Start          *DateTimeZone   `json:"start,omitempty"`
	End            *DateTimeZone   `json:"end,omitempty"`
	Location       *Location       `json:"location,omitempty"`
	OnlineMeeting  *OnlineMeeting  `json:"onlineMeeting,omitempty"`
	ResponseStatus *ResponseStatus `json:"responseStatus,omitempty"`
	Categories     []string        `json:"categories,omitempty"`
	IsAllDay       bool            `json:"isAllDay"`
	IsCancelled    bool            `json:"isCancelled"`
	SeriesMasterID string          `json:"seriesMasterId,omitempty"`
}

// CalendarViewInput selects the window and calendar for a fetch.
type CalendarViewInput struct {
	// Account alias the credential is stored under (typically the
	// configured username).
	Alias string
	// StartISO/EndISO bound the calendar view, RFC3339.
	StartISO string
	EndISO   string
	// CalendarID restricts the view to one calendar; empty means the
	// default calendar.
	CalendarID string
	// PageSize is the $top value per request (default 50).
	PageSize int
}

// CalendarViewOutput holds the fetched events in start order.
type CalendarViewOutput struct {
	Events []Event
}
